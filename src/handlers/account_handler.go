package handlers

import (
	"budgetsync-server/src/db"
	dbsql "budgetsync-server/src/db/sql"
	"budgetsync-server/src/middleware"
	plaidsvc "budgetsync-server/src/plaid"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetAccounts serves the user's linked accounts. ?refresh=true forces a
// pull from the aggregator; otherwise cached data is preferred, with an
// in-process cache in front of the database.
func GetAccounts(svc *plaidsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)
		forceRefresh := r.URL.Query().Get("refresh") == "true"
		cacheKey := db.AccountsCacheKey(userID)

		if !forceRefresh {
			if cached, ok := db.Cache.Get(cacheKey); ok {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(cached)
				return
			}
		}

		result, err := svc.GetAccounts(r.Context(), userID, forceRefresh)
		if err != nil {
			if errors.Is(err, plaidsvc.ErrNoLinkedAccount) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Printf("ERROR: Failed to get accounts for user %d: %v", userID, err)
			http.Error(w, "failed to fetch accounts", http.StatusInternalServerError)
			return
		}

		if result.IsCached {
			db.SetAccountCache(cacheKey, result)
		} else {
			db.DelAccountCache(cacheKey)
			if forceRefresh {
				// A forced account refresh also re-pulled the trailing
				// 30 days of transactions.
				db.ClearTransactionCaches(userID)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func GetAccountSummary(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		summary, err := dbsql.GetAccountSummary(r.Context(), pool, userID)
		if err != nil {
			log.Printf("ERROR: Failed to get account summary for user %d: %v", userID, err)
			http.Error(w, "failed to compute account summary", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// UpdateAccountName sets or clears the user's display override for an
// account. An empty or whitespace-only name clears it.
func UpdateAccountName(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)
		accountID := chi.URLParam(r, "account_id")

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		updated, err := dbsql.UpdateAccountCustomName(r.Context(), pool, userID, accountID, req.Name)
		if err != nil {
			log.Printf("ERROR: Failed to update custom name for user %d, account %s: %v", userID, accountID, err)
			http.Error(w, "failed to update account name", http.StatusInternalServerError)
			return
		}
		if !updated {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		db.DelAccountCache(db.AccountsCacheKey(userID))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}
