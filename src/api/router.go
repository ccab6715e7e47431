package api

import (
	"budgetsync-server/src/config"
	"budgetsync-server/src/handlers"
	"budgetsync-server/src/middleware"
	plaidsvc "budgetsync-server/src/plaid"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRouter(pool *pgxpool.Pool, svc *plaidsvc.Service, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handlers.Login(pool, cfg.JWTSecret))
		r.Post("/register", handlers.Register(pool, cfg.JWTSecret))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(cfg.JWTSecret)).Group(func(r chi.Router) {
			r.Get("/status", handlers.Status(svc, pool, cfg.PlaidEnv))

			// Plaid linking
			r.Post("/plaid/create-link-token", handlers.CreateLinkToken(svc))
			r.Post("/plaid/exchange-public-token", handlers.ExchangePublicToken(svc))
			r.Get("/plaid/tokens", handlers.GetTokens(pool))
			r.Delete("/plaid/tokens", handlers.RevokeToken(svc))
			r.Delete("/plaid/tokens/{token_id}", handlers.RevokeToken(svc))

			// Accounts
			r.Get("/accounts", handlers.GetAccounts(svc))
			r.Get("/accounts/summary", handlers.GetAccountSummary(pool))
			r.Put("/accounts/{account_id}/name", handlers.UpdateAccountName(pool))

			// Transactions
			r.Get("/transactions", handlers.GetTransactions(svc))
			r.Get("/transactions/summary", handlers.GetTransactionSummary(pool))
		})
	})

	return r
}
