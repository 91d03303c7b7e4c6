// Package api exposes the ledger over a JSON HTTP interface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/splitkaro/splitkaro/internal/auth"
	"github.com/splitkaro/splitkaro/internal/service"
)

// API holds the router and the services it dispatches to.
type API struct {
	router     *mux.Router
	auth       *service.AuthService
	groups     *service.GroupService
	ledger     *service.LedgerService
	jwtManager *auth.JWTManager
}

// New creates the API and registers all routes.
func New(authSvc *service.AuthService, groupSvc *service.GroupService, ledgerSvc *service.LedgerService, jwtManager *auth.JWTManager) *API {
	a := &API{
		router:     mux.NewRouter(),
		auth:       authSvc,
		groups:     groupSvc,
		ledger:     ledgerSvc,
		jwtManager: jwtManager,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(loggingMiddleware, metricsMiddleware)

	// Public endpoints
	a.router.HandleFunc("/health", a.handleHealth).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	a.router.HandleFunc("/api/auth/register", a.handleRegister).Methods("POST")
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("POST")

	// Protected endpoints. Routes registered above match before the
	// subrouter, so auth paths stay public.
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/users", a.handleListUsers).Methods("GET")
	protected.HandleFunc("/users/me", a.handleCurrentUser).Methods("GET")
	protected.HandleFunc("/users/{id}", a.handleGetUser).Methods("GET")
	protected.HandleFunc("/users/{id}/balances", a.handleUserBalances).Methods("GET")
	protected.HandleFunc("/users/{id}/expenses", a.handleUserExpenses).Methods("GET")

	protected.HandleFunc("/groups", a.handleCreateGroup).Methods("POST")
	protected.HandleFunc("/groups", a.handleListGroups).Methods("GET")
	protected.HandleFunc("/groups/{id}", a.handleGetGroup).Methods("GET")
	protected.HandleFunc("/groups/{id}/members", a.handleAddMembers).Methods("POST")
	protected.HandleFunc("/groups/{id}/members", a.handleListMembers).Methods("GET")
	protected.HandleFunc("/groups/{id}/members/{user_id}", a.handleRemoveMember).Methods("DELETE")
	protected.HandleFunc("/groups/{id}/expenses", a.handleRecordExpense).Methods("POST")
	protected.HandleFunc("/groups/{id}/expenses", a.handleListGroupExpenses).Methods("GET")
	protected.HandleFunc("/groups/{id}/balances", a.handleGroupBalances).Methods("GET")
	protected.HandleFunc("/groups/{id}/simplify", a.handleSimplify).Methods("GET")
	protected.HandleFunc("/groups/{id}/summary", a.handleSummary).Methods("GET")
	protected.HandleFunc("/groups/{id}/settlements", a.handleRecordSettlement).Methods("POST")
	protected.HandleFunc("/groups/{id}/settlements", a.handleListSettlements).Methods("GET")

	protected.HandleFunc("/expenses/{id}", a.handleGetExpense).Methods("GET")
	protected.HandleFunc("/expenses/{id}", a.handleDeleteExpense).Methods("DELETE")
	protected.HandleFunc("/splits/{id}/settle", a.handleSettleSplit).Methods("PUT")
	protected.HandleFunc("/settlements/{id}", a.handleDeleteSettlement).Methods("DELETE")
}

// Handler returns the fully wrapped HTTP handler.
func (a *API) Handler() http.Handler {
	// Note: with a wildcard origin, AllowCredentials must stay false.
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}
