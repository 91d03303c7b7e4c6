package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/splitkaro/splitkaro/internal/ledger"
	"github.com/splitkaro/splitkaro/internal/service"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := a.auth.Register(r.Context(), req.Handle, req.DisplayName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: toUserResponse(user), Token: token})
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := a.auth.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: toUserResponse(user), Token: token})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (a *API) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUser(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleUserBalances returns a user's net balance in a group, plus the
// per-counterparty breakdown.
func (a *API) handleUserBalances(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "group_id query parameter required"})
		return
	}

	net, err := a.ledger.NetBalance(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	pairwise, err := a.ledger.PairwiseBalances(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, err)
		return
	}

	rounded := make(map[string]float64, len(pairwise))
	for id, amount := range pairwise {
		rounded[id] = round2(amount)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"group_id": groupID,
		"net":      round2(net),
		"pairwise": rounded,
	})
}

func (a *API) handleUserExpenses(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "group_id query parameter required"})
		return
	}
	limit := queryInt(r, "limit", 0)

	expenses, err := a.ledger.ListUserExpenses(r.Context(), userID, groupID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name required"})
		return
	}

	group, err := a.groups.CreateGroup(r.Context(), req.Name, GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.groups.ListGroups(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]groupResponse, len(groups))
	for i, group := range groups {
		out[i] = toGroupResponse(group)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := a.groups.GetGroup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

type addMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (a *API) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	var req addMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := a.groups.AddMembers(r.Context(), mux.Vars(r)["id"], req.UserIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.groups.ListMembers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(members))
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := a.groups.RemoveMember(r.Context(), vars["id"], vars["user_id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type recordExpenseRequest struct {
	Description  string               `json:"description"`
	Total        float64              `json:"total"`
	Participants []participantRequest `json:"participants"`
}

type participantRequest struct {
	UserID string   `json:"user_id"`
	Paid   *float64 `json:"paid,omitempty"`
}

func (a *API) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req recordExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Equal split unless any participant carries an explicit paid amount.
	equalSplit := true
	participants := make([]ledger.ParticipantInput, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = ledger.ParticipantInput{UserID: p.UserID, Paid: p.Paid}
		if p.Paid != nil {
			equalSplit = false
		}
	}

	expense, err := a.ledger.RecordExpense(r.Context(), service.RecordExpenseInput{
		GroupID:      mux.Vars(r)["id"],
		CreatedBy:    GetUserID(r.Context()),
		Description:  req.Description,
		Total:        req.Total,
		EqualSplit:   equalSplit,
		Participants: participants,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (a *API) handleListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	expenses, err := a.ledger.ListGroupExpenses(r.Context(), mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

func (a *API) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := a.ledger.GroupBalances(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}

func (a *API) handleSimplify(w http.ResponseWriter, r *http.Request) {
	payments, err := a.ledger.SimplifyGroup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.ledger.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group":         toGroupResponse(summary.Group),
		"members":       toUserResponses(summary.Members),
		"expense_count": summary.ExpenseCount,
		"total_spent":   round2(summary.TotalSpent),
		"balances":      toBalanceResponses(summary.Balances),
		"payments":      toPaymentResponses(summary.Payments),
	})
}

type recordSettlementRequest struct {
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

func (a *API) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req recordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	settlement, err := a.ledger.RecordSettlement(r.Context(), service.RecordSettlementInput{
		GroupID:    mux.Vars(r)["id"],
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		CreatedBy:  GetUserID(r.Context()),
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementResponse(settlement))
}

func (a *API) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := a.ledger.ListSettlements(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]settlementResponse, len(settlements))
	for i, settlement := range settlements {
		out[i] = toSettlementResponse(settlement)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := a.ledger.GetExpense(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := a.ledger.DeleteExpense(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleSettleSplit(w http.ResponseWriter, r *http.Request) {
	if err := a.ledger.SettleSplit(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleDeleteSettlement(w http.ResponseWriter, r *http.Request) {
	if err := a.ledger.DeleteSettlement(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
