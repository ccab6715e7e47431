package handlers

import (
	"budgetsync-server/src/db"
	dbsql "budgetsync-server/src/db/sql"
	"budgetsync-server/src/middleware"
	plaidsvc "budgetsync-server/src/plaid"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func CreateLinkToken(svc *plaidsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		linkToken, err := svc.CreateLinkToken(r.Context(), userID)
		if err != nil {
			log.Printf("ERROR: Plaid link token creation failed for user %d: %v", userID, err)
			http.Error(w, "failed to create link token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"link_token": linkToken})
	}
}

func ExchangePublicToken(svc *plaidsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		var req struct {
			PublicToken string `json:"public_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
			http.Error(w, "public_token is required", http.StatusBadRequest)
			return
		}

		result, err := svc.ExchangePublicToken(r.Context(), userID, req.PublicToken)
		if err != nil {
			log.Printf("ERROR: Public token exchange failed for user %d: %v", userID, err)
			http.Error(w, "failed to exchange public token", http.StatusInternalServerError)
			return
		}

		// A new institution invalidates every cached read for this user.
		db.DelAccountCache(db.AccountsCacheKey(userID))
		db.ClearTransactionCaches(userID)

		log.Printf("INFO: Exchanged public token for user %d, item %s", userID, result.ItemID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"item_id": result.ItemID})
	}
}

func GetTokens(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		tokens, err := dbsql.GetUserTokens(r.Context(), pool, userID)
		if err != nil {
			log.Printf("ERROR: Failed to get tokens for user %d: %v", userID, err)
			http.Error(w, "failed to retrieve linked institutions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokens)
	}
}

// RevokeToken removes one linked institution, or all of them when no
// token_id is present in the path.
func RevokeToken(svc *plaidsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		var tokenID int64
		if raw := chi.URLParam(r, "token_id"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid token id", http.StatusBadRequest)
				return
			}
			tokenID = parsed
		}

		if err := svc.RevokeAccessToken(r.Context(), userID, tokenID); err != nil {
			log.Printf("ERROR: Failed to revoke token %d for user %d: %v", tokenID, userID, err)
			http.Error(w, "failed to revoke token", http.StatusInternalServerError)
			return
		}

		db.DelAccountCache(db.AccountsCacheKey(userID))
		db.ClearTransactionCaches(userID)

		log.Printf("INFO: Revoked token(s) for user %d", userID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func Status(svc *plaidsvc.Service, pool *pgxpool.Pool, plaidEnv string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)

		user, err := dbsql.GetUserByID(r.Context(), pool, userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"has_access_token":       svc.HasAccessToken(r.Context(), userID),
			"connected_institutions": svc.GetInstitutionsCount(r.Context(), userID),
			"environment":            plaidEnv,
			"user_id":                user.ID,
			"username":               user.Username,
		})
	}
}
