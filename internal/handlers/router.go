package handlers

import (
	"log/slog"
	"net/http"

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/db"
	"bankledger/internal/middleware"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorilla "github.com/gorilla/websocket"
	"github.com/ulule/limiter/v3"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	TxRunner    db.TxRunner
	Users       UserStore
	Admins      AdminStore
	Audit       AuditStore
	Accounts    AccountService
	Cards       CardService
	Loans       LoanService
	Hub         *websocket.Hub
	Revocations *auth.RevocationList
	Limiter     *limiter.Limiter
	Logger      *slog.Logger
}

type Handler struct {
	cfg         config.Config
	txRunner    db.TxRunner
	users       UserStore
	admins      AdminStore
	audit       AuditStore
	accounts    AccountService
	cards       CardService
	loans       LoanService
	hub         *websocket.Hub
	revocations *auth.RevocationList
	limiter     *limiter.Limiter
	upgrader    gorilla.Upgrader
	logger      *slog.Logger
}

func New(cfg config.Config, deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:         cfg,
		txRunner:    deps.TxRunner,
		users:       deps.Users,
		admins:      deps.Admins,
		audit:       deps.Audit,
		accounts:    deps.Accounts,
		cards:       deps.Cards,
		loans:       deps.Loans,
		hub:         deps.Hub,
		revocations: deps.Revocations,
		limiter:     deps.Limiter,
		upgrader:    websocket.Upgrader(cfg.AllowedOrigins),
		logger:      logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret, h.revocations)
	limited := h.rateLimit()

	router.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/register", h.Register)
		r.With(limited).Post("/login", h.Login)
		r.With(authenticated).Post("/logout", h.Logout)
		r.With(authenticated).Get("/me", h.Me)
	})
	router.Get("/users/internal/validate", h.ValidateToken)

	router.Route("/accounts", func(r chi.Router) {
		r.Use(authenticated)
		r.With(limited).Post("/", h.CreateAccount)
		r.Get("/", h.ListAccounts)
		r.Get("/transactions", h.ListOwnerTransactions)
		r.Get("/number/{number}", h.GetAccountByNumber)
		r.Get("/{id}", h.GetAccount)
		r.Post("/{id}/transactions", h.AddAccountTransaction)
		r.Get("/{id}/transactions", h.ListAccountTransactions)
		r.Post("/{id}/close", h.CloseAccount)
		r.Get("/{id}/reconcile", h.ReconcileAccount)
	})

	router.Route("/cards", func(r chi.Router) {
		r.Use(authenticated)
		r.With(limited).Post("/", h.CreateCard)
		r.Get("/", h.ListCards)
		r.Get("/number/{number}", h.GetCardByNumber)
		r.Get("/{id}", h.GetCard)
		r.Put("/{id}", h.UpdateCardDetails)
		r.Delete("/{id}", h.DeleteCard)
		r.Post("/{id}/transactions", h.UpdateCardBalance)
		r.Get("/{id}/transactions", h.ListCardTransactions)
		r.Post("/{id}/limit/increase", h.IncreaseCardLimit)
		r.Post("/{id}/limit/decrease", h.DecreaseCardLimit)
		r.Post("/{id}/block", h.BlockCard)
		r.Post("/{id}/unblock", h.UnblockCard)
		r.Put("/{id}/status", h.UpdateCardStatus)
		r.Get("/{id}/expired", h.CardExpired)
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(authenticated)
		r.With(limited).Post("/", h.CreateLoan)
		r.Get("/", h.ListLoans)
		r.Get("/{id}", h.GetLoan)
		r.Delete("/{id}", h.DeleteLoan)
		r.Put("/{id}/terms", h.UpdateLoanTerms)
		r.Post("/{id}/payments", h.MakeLoanPayment)
		r.Get("/{id}/payments", h.ListLoanPayments)
		r.Get("/{id}/schedule", h.LoanSchedule)
	})

	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.With(middleware.RequireAdmin(h.admins, "")).Post("/promote", h.PromoteAdmin)
		r.With(middleware.RequireAdmin(h.admins, "")).Post("/roles/grant", h.GrantRole)
		r.With(middleware.RequireAdmin(h.admins, store.RoleViewAudit)).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireAdmin(h.admins, store.RoleManageLoans)).Put("/loans/{id}/status", h.AdminUpdateLoanStatus)
		r.With(middleware.RequireAdmin(h.admins, store.RoleManageUsers)).Put("/users/{id}/active", h.AdminSetUserActive)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(h.limiter, h.logger)
}
