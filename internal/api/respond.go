package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/splitkaro/splitkaro/internal/auth"
	"github.com/splitkaro/splitkaro/internal/ledger"
	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/service"
	"github.com/splitkaro/splitkaro/internal/storage"
)

// round2 rounds to two decimal places. Applied only here, at the
// presentation boundary; internal computation keeps full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// errorResponse is the uniform error body. Code is a stable machine-readable
// identifier; Error carries the human-readable detail.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *ledger.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Message, Code: validationErr.Code})
	case errors.Is(err, auth.ErrHandleExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidHandle):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		slog.Error("Internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type userResponse struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func toUserResponses(users []*models.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, user := range users {
		out[i] = toUserResponse(user)
	}
	return out
}

type groupResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

func toGroupResponse(group *models.Group) groupResponse {
	return groupResponse{ID: group.ID, Name: group.Name, CreatedAt: group.CreatedAt}
}

type splitResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	PaidAmount float64 `json:"paid_amount"`
	OwedAmount float64 `json:"owed_amount"`
	Settled    bool    `json:"settled"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   int64           `json:"created_at"`
	Splits      []splitResponse `json:"splits"`
}

func toExpenseResponse(expense *models.Expense) expenseResponse {
	splits := make([]splitResponse, len(expense.Splits))
	for i, split := range expense.Splits {
		splits[i] = splitResponse{
			ID:         split.ID,
			UserID:     split.UserID,
			PaidAmount: round2(split.PaidAmount),
			OwedAmount: round2(split.OwedAmount),
			Settled:    split.Settled,
		}
	}
	return expenseResponse{
		ID:          expense.ID,
		GroupID:     expense.GroupID,
		Amount:      round2(expense.Amount),
		Description: expense.Description,
		CreatedBy:   expense.CreatedBy,
		CreatedAt:   expense.CreatedAt,
		Splits:      splits,
	}
}

func toExpenseResponses(expenses []*models.Expense) []expenseResponse {
	out := make([]expenseResponse, len(expenses))
	for i, expense := range expenses {
		out[i] = toExpenseResponse(expense)
	}
	return out
}

type balanceResponse struct {
	UserID     string  `json:"user_id"`
	Handle     string  `json:"handle"`
	NetBalance float64 `json:"net_balance"`
	TotalPaid  float64 `json:"total_paid"`
	TotalOwed  float64 `json:"total_owed"`
}

func toBalanceResponses(balances []service.MemberBalance) []balanceResponse {
	out := make([]balanceResponse, len(balances))
	for i, balance := range balances {
		out[i] = balanceResponse{
			UserID:     balance.UserID,
			Handle:     balance.Handle,
			NetBalance: round2(balance.NetBalance),
			TotalPaid:  round2(balance.TotalPaid),
			TotalOwed:  round2(balance.TotalOwed),
		}
	}
	return out
}

type paymentResponse struct {
	FromUserID string  `json:"from_user_id"`
	FromHandle string  `json:"from_handle"`
	ToUserID   string  `json:"to_user_id"`
	ToHandle   string  `json:"to_handle"`
	Amount     float64 `json:"amount"`
}

func toPaymentResponses(payments []service.PlannedPayment) []paymentResponse {
	out := make([]paymentResponse, len(payments))
	for i, payment := range payments {
		out[i] = paymentResponse{
			FromUserID: payment.FromUserID,
			FromHandle: payment.FromHandle,
			ToUserID:   payment.ToUserID,
			ToHandle:   payment.ToHandle,
			Amount:     round2(payment.Amount),
		}
	}
	return out
}

type settlementResponse struct {
	ID         string  `json:"id"`
	GroupID    string  `json:"group_id"`
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
	CreatedAt  int64   `json:"created_at"`
	CreatedBy  string  `json:"created_by"`
	Note       string  `json:"note,omitempty"`
}

func toSettlementResponse(settlement *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:         settlement.ID,
		GroupID:    settlement.GroupID,
		FromUserID: settlement.FromUserID,
		ToUserID:   settlement.ToUserID,
		Amount:     round2(settlement.Amount),
		CreatedAt:  settlement.CreatedAt,
		CreatedBy:  settlement.CreatedBy,
		Note:       settlement.Note,
	}
}
