package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/splitkaro/splitkaro/internal/auth"
	"github.com/splitkaro/splitkaro/internal/service"
	"github.com/splitkaro/splitkaro/internal/storage/sqlite"
)

// setupTestAPI builds the full stack on a temp SQLite database and returns
// a running test server.
func setupTestAPI(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)
	authSvc := service.NewAuthService(authenticator, jwtManager, store, slog.Default())
	groupSvc := service.NewGroupService(store)
	ledgerSvc := service.NewLedgerService(store)

	server := httptest.NewServer(New(authSvc, groupSvc, ledgerSvc, jwtManager).Handler())

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return server, cleanup
}

// doJSON issues a request with an optional bearer token and decodes the JSON
// response into out (if non-nil).
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// registerUser creates an account through the API and returns its ID and token.
func registerUser(t *testing.T, serverURL, handle string) (string, string) {
	t.Helper()

	var resp struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	status := doJSON(t, "POST", serverURL+"/api/auth/register", "", map[string]string{
		"handle":   handle,
		"password": "correct-horse",
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, want %d", handle, status, http.StatusCreated)
	}
	return resp.User.ID, resp.Token
}

func TestHealth(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	var body map[string]string
	status := doJSON(t, "GET", server.URL+"/health", "", nil, &body)
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestAuthRequired(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	status := doJSON(t, "GET", server.URL+"/api/groups", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}

	req, _ := http.NewRequest("GET", server.URL+"/api/groups", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	_, token := registerUser(t, server.URL, "alice")
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	// Duplicate handle conflicts
	status := doJSON(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"handle": "alice", "password": "correct-horse",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", status, http.StatusConflict)
	}

	// Weak password rejected
	status = doJSON(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"handle": "bob", "password": "short",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("weak password status = %d, want %d", status, http.StatusBadRequest)
	}

	var login struct {
		Token string `json:"token"`
	}
	status = doJSON(t, "POST", server.URL+"/api/auth/login", "", map[string]string{
		"handle": "alice", "password": "correct-horse",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Errorf("login status = %d, token = %q", status, login.Token)
	}

	status = doJSON(t, "POST", server.URL+"/api/auth/login", "", map[string]string{
		"handle": "alice", "password": "wrong-password",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	aliceID, aliceToken := registerUser(t, server.URL, "alice")
	bobID, _ := registerUser(t, server.URL, "bob")

	// Create group and add bob
	var group struct {
		ID string `json:"id"`
	}
	status := doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{"name": "Trip"}, &group)
	if status != http.StatusCreated || group.ID == "" {
		t.Fatalf("create group status = %d, id = %q", status, group.ID)
	}
	status = doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/members", aliceToken,
		map[string][]string{"user_ids": {bobID}}, nil)
	if status != http.StatusNoContent {
		t.Fatalf("add members status = %d, want %d", status, http.StatusNoContent)
	}

	// Record an unequal expense: alice fronts 500
	var expense struct {
		ID     string `json:"id"`
		Splits []struct {
			UserID     string  `json:"user_id"`
			OwedAmount float64 `json:"owed_amount"`
		} `json:"splits"`
	}
	status = doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"description": "hotel",
		"total":       500,
		"participants": []map[string]any{
			{"user_id": aliceID, "paid": 500},
			{"user_id": bobID, "paid": 0},
		},
	}, &expense)
	if status != http.StatusCreated {
		t.Fatalf("record expense status = %d, want %d", status, http.StatusCreated)
	}
	if len(expense.Splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(expense.Splits))
	}
	for _, split := range expense.Splits {
		if math.Abs(split.OwedAmount-250) > 0.01 {
			t.Errorf("owed = %v, want 250", split.OwedAmount)
		}
	}

	// Balances: alice +250, bob -250
	var balances []struct {
		Handle     string  `json:"handle"`
		NetBalance float64 `json:"net_balance"`
	}
	status = doJSON(t, "GET", server.URL+"/api/groups/"+group.ID+"/balances", aliceToken, nil, &balances)
	if status != http.StatusOK || len(balances) != 2 {
		t.Fatalf("balances status = %d, count = %d", status, len(balances))
	}
	if balances[0].Handle != "alice" || math.Abs(balances[0].NetBalance-250) > 0.01 {
		t.Errorf("alice balance = %+v, want +250", balances[0])
	}
	if balances[1].Handle != "bob" || math.Abs(balances[1].NetBalance-(-250)) > 0.01 {
		t.Errorf("bob balance = %+v, want -250", balances[1])
	}

	// Simplify: bob pays alice 250
	var payments []struct {
		FromHandle string  `json:"from_handle"`
		ToHandle   string  `json:"to_handle"`
		Amount     float64 `json:"amount"`
	}
	status = doJSON(t, "GET", server.URL+"/api/groups/"+group.ID+"/simplify", aliceToken, nil, &payments)
	if status != http.StatusOK || len(payments) != 1 {
		t.Fatalf("simplify status = %d, count = %d", status, len(payments))
	}
	if payments[0].FromHandle != "bob" || payments[0].ToHandle != "alice" || math.Abs(payments[0].Amount-250) > 0.01 {
		t.Errorf("payment = %+v, want bob -> alice 250", payments[0])
	}

	// Settle via recorded settlement and re-check
	status = doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/settlements", aliceToken, map[string]any{
		"from_user_id": bobID,
		"to_user_id":   aliceID,
		"amount":       250,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("record settlement status = %d, want %d", status, http.StatusCreated)
	}
	status = doJSON(t, "GET", server.URL+"/api/groups/"+group.ID+"/simplify", aliceToken, nil, &payments)
	if status != http.StatusOK || len(payments) != 0 {
		t.Errorf("simplify after settlement: status = %d, payments = %+v", status, payments)
	}

	// Delete the expense
	status = doJSON(t, "DELETE", server.URL+"/api/expenses/"+expense.ID, aliceToken, nil, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete expense status = %d, want %d", status, http.StatusNoContent)
	}
	status = doJSON(t, "GET", server.URL+"/api/expenses/"+expense.ID, aliceToken, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("get deleted expense status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestRecordExpense_ValidationErrorCodes(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	aliceID, aliceToken := registerUser(t, server.URL, "alice")
	bobID, _ := registerUser(t, server.URL, "bob")
	charlieID, _ := registerUser(t, server.URL, "charlie")

	var group struct {
		ID string `json:"id"`
	}
	doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{"name": "Pair"}, &group)
	doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/members", aliceToken,
		map[string][]string{"user_ids": {bobID}}, nil)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
	}{
		{
			name: "non-positive amount",
			body: map[string]any{
				"total": 0,
				"participants": []map[string]any{
					{"user_id": aliceID}, {"user_id": bobID},
				},
			},
			wantCode: "non_positive_amount",
		},
		{
			name: "single participant",
			body: map[string]any{
				"total": 100,
				"participants": []map[string]any{
					{"user_id": aliceID},
				},
			},
			wantCode: "insufficient_participants",
		},
		{
			name: "participant listed twice",
			body: map[string]any{
				"total": 100,
				"participants": []map[string]any{
					{"user_id": aliceID}, {"user_id": aliceID},
				},
			},
			wantCode: "duplicate_participant",
		},
		{
			name: "paid amounts do not sum to total",
			body: map[string]any{
				"total": 500,
				"participants": []map[string]any{
					{"user_id": aliceID, "paid": 200},
					{"user_id": bobID, "paid": 250},
				},
			},
			wantCode: "amount_mismatch",
		},
		{
			name: "participant outside group",
			body: map[string]any{
				"total": 100,
				"participants": []map[string]any{
					{"user_id": aliceID}, {"user_id": charlieID},
				},
			},
			wantCode: "participant_not_member",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errBody struct {
				Code string `json:"code"`
			}
			status := doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/expenses", aliceToken, tt.body, &errBody)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
			}
			if errBody.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", errBody.Code, tt.wantCode)
			}
		})
	}
}

func TestUserBalances(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	aliceID, aliceToken := registerUser(t, server.URL, "alice")
	bobID, _ := registerUser(t, server.URL, "bob")

	var group struct {
		ID string `json:"id"`
	}
	doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{"name": "Pair"}, &group)
	doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/members", aliceToken,
		map[string][]string{"user_ids": {bobID}}, nil)

	doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"total": 300,
		"participants": []map[string]any{
			{"user_id": aliceID, "paid": 300},
			{"user_id": bobID, "paid": 0},
		},
	}, nil)

	var balances struct {
		Net      float64            `json:"net"`
		Pairwise map[string]float64 `json:"pairwise"`
	}
	url := fmt.Sprintf("%s/api/users/%s/balances?group_id=%s", server.URL, aliceID, group.ID)
	status := doJSON(t, "GET", url, aliceToken, nil, &balances)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if math.Abs(balances.Net-150) > 0.01 {
		t.Errorf("net = %v, want 150", balances.Net)
	}
	if math.Abs(balances.Pairwise[bobID]-150) > 0.01 {
		t.Errorf("pairwise[bob] = %v, want 150", balances.Pairwise[bobID])
	}

	// Missing group_id is a bad request
	status = doJSON(t, "GET", server.URL+"/api/users/"+aliceID+"/balances", aliceToken, nil, nil)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestSummary_Endpoint(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	aliceID, aliceToken := registerUser(t, server.URL, "alice")
	bobID, _ := registerUser(t, server.URL, "bob")

	var group struct {
		ID string `json:"id"`
	}
	doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{"name": "Holiday"}, &group)
	doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/members", aliceToken,
		map[string][]string{"user_ids": {bobID}}, nil)

	doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"total": 120,
		"participants": []map[string]any{
			{"user_id": aliceID, "paid": 120},
			{"user_id": bobID, "paid": 0},
		},
	}, nil)

	var summary struct {
		ExpenseCount int     `json:"expense_count"`
		TotalSpent   float64 `json:"total_spent"`
		Members      []any   `json:"members"`
		Payments     []any   `json:"payments"`
	}
	status := doJSON(t, "GET", server.URL+"/api/groups/"+group.ID+"/summary", aliceToken, nil, &summary)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if summary.ExpenseCount != 1 {
		t.Errorf("expense_count = %d, want 1", summary.ExpenseCount)
	}
	if math.Abs(summary.TotalSpent-120) > 0.01 {
		t.Errorf("total_spent = %v, want 120", summary.TotalSpent)
	}
	if len(summary.Members) != 2 {
		t.Errorf("members = %d, want 2", len(summary.Members))
	}
	if len(summary.Payments) != 1 {
		t.Errorf("payments = %d, want 1", len(summary.Payments))
	}
}

func TestGroupNotFound(t *testing.T) {
	server, cleanup := setupTestAPI(t)
	defer cleanup()

	_, token := registerUser(t, server.URL, "alice")

	status := doJSON(t, "GET", server.URL+"/api/groups/nonexistent", token, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
	status = doJSON(t, "GET", server.URL+"/api/groups/nonexistent/balances", token, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}
