package db

import (
	"budgetsync-server/src/models"
	"budgetsync-server/src/util"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SaveTransactions upserts transactions keyed by (user, transaction_id), so
// re-syncing the same window is idempotent and pending transactions settle
// in place.
func SaveTransactions(ctx context.Context, pool *pgxpool.Pool, userID int64, transactions []models.Transaction) error {
	for _, txn := range transactions {
		query := `
			INSERT INTO transactions (
				user_id, account_id, transaction_id, amount, iso_currency_code,
				unofficial_currency_code, date, datetime, authorized_date,
				authorized_datetime, name, merchant_name, account_owner,
				category, subcategory, transaction_type, pending,
				institution_name, category_primary, category_detailed,
				category_confidence, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::date, $10, $11, $12, $13,
				$14, $15, $16, $17, $18, $19, $20, $21, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, transaction_id) DO UPDATE SET
				amount = EXCLUDED.amount,
				iso_currency_code = EXCLUDED.iso_currency_code,
				unofficial_currency_code = EXCLUDED.unofficial_currency_code,
				date = EXCLUDED.date,
				datetime = EXCLUDED.datetime,
				authorized_date = EXCLUDED.authorized_date,
				authorized_datetime = EXCLUDED.authorized_datetime,
				name = EXCLUDED.name,
				merchant_name = EXCLUDED.merchant_name,
				account_owner = EXCLUDED.account_owner,
				category = EXCLUDED.category,
				subcategory = EXCLUDED.subcategory,
				transaction_type = EXCLUDED.transaction_type,
				pending = EXCLUDED.pending,
				institution_name = EXCLUDED.institution_name,
				category_primary = EXCLUDED.category_primary,
				category_detailed = EXCLUDED.category_detailed,
				category_confidence = EXCLUDED.category_confidence,
				updated_at = CURRENT_TIMESTAMP
		`

		_, err := pool.Exec(ctx, query,
			userID, txn.AccountID, txn.TransactionID, txn.Amount, txn.ISOCurrencyCode,
			txn.UnofficialCurrencyCode, txn.Date, txn.Datetime, txn.AuthorizedDate,
			txn.AuthorizedDatetime, txn.Name, txn.MerchantName, txn.AccountOwner,
			txn.Category, txn.Subcategory, txn.TransactionType, txn.Pending,
			txn.InstitutionName, txn.CategoryPrimary, txn.CategoryDetailed,
			txn.CategoryConfidence,
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.TransactionID, err)
		}
	}

	return nil
}

// transactionFilterSQL appends the shared WHERE-clause fragments for
// year/month and account filtering. The account_id filter takes precedence
// over the account-type list.
func transactionFilterSQL(query *strings.Builder, params []interface{}, f models.TransactionFilter) []interface{} {
	if f.Year != 0 {
		if f.Month != 0 {
			fmt.Fprintf(query, " AND EXTRACT(YEAR FROM t.date) = $%d AND EXTRACT(MONTH FROM t.date) = $%d", len(params)+1, len(params)+2)
			params = append(params, f.Year, f.Month)
		} else {
			fmt.Fprintf(query, " AND EXTRACT(YEAR FROM t.date) = $%d", len(params)+1)
			params = append(params, f.Year)
		}
	}

	if f.AccountID != "" {
		fmt.Fprintf(query, " AND t.account_id = $%d", len(params)+1)
		params = append(params, f.AccountID)
	} else if len(f.AccountTypes) > 0 {
		placeholders := make([]string, len(f.AccountTypes))
		for i, accType := range f.AccountTypes {
			placeholders[i] = fmt.Sprintf("$%d", len(params)+1)
			params = append(params, accType)
		}
		fmt.Fprintf(query, " AND a.type IN (%s)", strings.Join(placeholders, ","))
	}

	return params
}

func GetCachedTransactions(ctx context.Context, pool *pgxpool.Pool, userID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	if f.Limit == 0 {
		f.Limit = 100
	}

	var query strings.Builder
	query.WriteString(`
		SELECT t.transaction_id, t.account_id, a.name, a.type, COALESCE(a.subtype, ''),
			t.amount, COALESCE(t.iso_currency_code, 'USD'), t.unofficial_currency_code,
			to_char(t.date, 'YYYY-MM-DD'), t.datetime,
			COALESCE(to_char(t.authorized_date, 'YYYY-MM-DD'), ''), t.authorized_datetime,
			COALESCE(t.name, ''), t.merchant_name, t.account_owner,
			t.category, t.subcategory,
			COALESCE(t.category_primary, 'OTHER'), COALESCE(t.category_detailed, 'OTHER'),
			COALESCE(t.category_confidence, 'UNKNOWN'),
			t.pending, COALESCE(a.institution_name, ''), t.updated_at
		FROM transactions t
		JOIN accounts a ON t.account_id = a.account_id AND t.user_id = a.user_id
		WHERE t.user_id = $1 AND a.is_active = TRUE
	`)
	params := []interface{}{userID}
	params = transactionFilterSQL(&query, params, f)

	fmt.Fprintf(&query, " ORDER BY t.date DESC, t.datetime DESC LIMIT $%d OFFSET $%d", len(params)+1, len(params)+2)
	params = append(params, f.Limit, f.Offset)

	rows, err := pool.Query(ctx, query.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(&txn.TransactionID, &txn.AccountID, &txn.AccountName, &txn.AccountType, &txn.AccountSubtype,
			&txn.Amount, &txn.ISOCurrencyCode, &txn.UnofficialCurrencyCode,
			&txn.Date, &txn.Datetime,
			&txn.AuthorizedDate, &txn.AuthorizedDatetime,
			&txn.Name, &txn.MerchantName, &txn.AccountOwner,
			&txn.Category, &txn.Subcategory,
			&txn.CategoryPrimary, &txn.CategoryDetailed, &txn.CategoryConfidence,
			&txn.Pending, &txn.InstitutionName, &txn.UpdatedAt)
		if err != nil {
			return nil, err
		}
		txn.FormattedAmount = formatAbsAmount(txn.Amount)
		txn.TransactionType = transactionType(txn.Amount)
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

func GetTransactionSummary(ctx context.Context, pool *pgxpool.Pool, userID int64, f models.TransactionFilter) (*models.TransactionSummary, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN t.amount > 0 THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.amount < 0 THEN ABS(t.amount) ELSE 0 END), 0),
			COALESCE(AVG(ABS(t.amount)), 0)
		FROM transactions t
		JOIN accounts a ON t.account_id = a.account_id AND t.user_id = a.user_id
		WHERE t.user_id = $1 AND a.is_active = TRUE
	`)
	params := []interface{}{userID}
	params = transactionFilterSQL(&query, params, f)

	summary := &models.TransactionSummary{
		TopCategories:        []models.CategoryTotal{},
		TopPrimaryCategories: []models.CategoryTotal{},
		PeriodDays:           periodDays(f.Year, f.Month),
	}
	err := pool.QueryRow(ctx, query.String(), params...).Scan(
		&summary.TotalTransactions, &summary.TotalDebits, &summary.TotalCredits, &summary.AvgTransactionAmount)
	if err != nil {
		return nil, err
	}
	summary.NetFlow = summary.TotalDebits - summary.TotalCredits

	topCategories, err := topCategoryTotals(ctx, pool, userID, f, "t.category", "AND t.category IS NOT NULL")
	if err != nil {
		return nil, err
	}
	summary.TopCategories = topCategories

	// The OTHER bucket is excluded from the primary-taxonomy ranking only.
	topPrimary, err := topCategoryTotals(ctx, pool, userID, f, "t.category_primary",
		"AND t.category_primary IS NOT NULL AND t.category_primary != 'OTHER'")
	if err != nil {
		return nil, err
	}
	summary.TopPrimaryCategories = topPrimary

	return summary, nil
}

func topCategoryTotals(ctx context.Context, pool *pgxpool.Pool, userID int64, f models.TransactionFilter, column, extraWhere string) ([]models.CategoryTotal, error) {
	var query strings.Builder
	fmt.Fprintf(&query, `
		SELECT %s, COUNT(*), SUM(ABS(t.amount))
		FROM transactions t
		JOIN accounts a ON t.account_id = a.account_id AND t.user_id = a.user_id
		WHERE t.user_id = $1 AND a.is_active = TRUE %s
	`, column, extraWhere)
	params := []interface{}{userID}
	params = transactionFilterSQL(&query, params, f)
	fmt.Fprintf(&query, " GROUP BY %s ORDER BY SUM(ABS(t.amount)) DESC LIMIT 10", column)

	rows, err := pool.Query(ctx, query.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var total models.CategoryTotal
		if err := rows.Scan(&total.Category, &total.TransactionCount, &total.TotalAmount); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}

	return totals, rows.Err()
}

func DeleteTransactionsByAccount(ctx context.Context, pool *pgxpool.Pool, userID int64, accountID string) error {
	_, err := pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND account_id = $2`, userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}

// periodDays gives the length of the summarized window: exact days in the
// month, 365/366 for a bare year, 30 when no period was requested.
func periodDays(year, month int) int {
	switch {
	case year != 0 && month != 0:
		// Day zero of the next month is the last day of this one.
		return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	case year != 0:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 366
		}
		return 365
	default:
		return 30
	}
}

func formatAbsAmount(amount float64) string {
	return util.FormatUSD(math.Abs(amount))
}

func transactionType(amount float64) string {
	if amount > 0 {
		return "debit"
	}
	return "credit"
}
