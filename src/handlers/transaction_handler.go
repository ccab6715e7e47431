package handlers

import (
	"budgetsync-server/src/db"
	dbsql "budgetsync-server/src/db/sql"
	"budgetsync-server/src/middleware"
	"budgetsync-server/src/models"
	plaidsvc "budgetsync-server/src/plaid"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// transactionQuery is the parsed filter for transaction reads.
type transactionQuery struct {
	AccountTypes []string
	AccountID    string
	Year         int
	Month        int
	Refresh      bool
}

// parseTransactionQuery reads the shared query parameters. When neither
// year nor month is given but days is (it always is, via its default), the
// filter collapses to the current year and month; days plays no other part
// in date-range math.
func parseTransactionQuery(values url.Values, now time.Time) transactionQuery {
	q := transactionQuery{
		AccountID: values.Get("account_id"),
		Refresh:   values.Get("refresh") == "true",
	}

	for _, raw := range values["account_types"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.AccountTypes = append(q.AccountTypes, t)
			}
		}
	}
	if len(q.AccountTypes) == 0 {
		q.AccountTypes = []string{"depository", "credit"}
	}

	days := 30
	if raw := strings.TrimSpace(values.Get("days")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	if raw := strings.TrimSpace(values.Get("year")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			q.Year = parsed
		}
	}
	if raw := strings.TrimSpace(values.Get("month")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			q.Month = parsed
		}
	}

	if q.Year == 0 && q.Month == 0 && days != 0 {
		q.Year = now.Year()
		q.Month = int(now.Month())
	}

	return q
}

func GetTransactions(svc *plaidsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)
		q := parseTransactionQuery(r.URL.Query(), time.Now())
		cacheKey := db.TransactionsCacheKey(userID, q.cacheKey())

		if !q.Refresh {
			if cached, ok := db.Cache.Get(cacheKey); ok {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(cached)
				return
			}
		}

		result, err := svc.GetTransactions(r.Context(), userID, q.AccountTypes, q.AccountID, q.Year, q.Month, q.Refresh)
		if err != nil {
			if errors.Is(err, plaidsvc.ErrNoLinkedAccount) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Printf("ERROR: Failed to get transactions for user %d: %v", userID, err)
			http.Error(w, "failed to fetch transactions", http.StatusInternalServerError)
			return
		}

		if result.IsCached {
			db.SetTransactionCache(cacheKey, result)
		} else {
			// Fresh data just rewrote the DB cache; stale response-cache
			// entries for this user must not outlive it.
			db.ClearTransactionCaches(userID)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func GetTransactionSummary(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r)
		q := parseTransactionQuery(r.URL.Query(), time.Now())

		summary, err := dbsql.GetTransactionSummary(r.Context(), pool, userID, models.TransactionFilter{
			AccountTypes: q.AccountTypes,
			AccountID:    q.AccountID,
			Year:         q.Year,
			Month:        q.Month,
		})
		if err != nil {
			log.Printf("ERROR: Failed to get transaction summary for user %d: %v", userID, err)
			http.Error(w, "failed to compute transaction summary", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

func (q transactionQuery) cacheKey() string {
	return fmt.Sprintf("%s:%s:%d:%d", strings.Join(q.AccountTypes, ","), q.AccountID, q.Year, q.Month)
}
