package db

import (
	"budgetsync-server/src/models"
	"budgetsync-server/src/util"
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SaveAccounts upserts account snapshots keyed by (user, account_id). The
// custom_name column is deliberately absent from the update list: a name the
// user set must survive every refresh.
func SaveAccounts(ctx context.Context, pool *pgxpool.Pool, userID, tokenID int64, accounts []models.Account) error {
	for _, acc := range accounts {
		query := `
			INSERT INTO accounts (
				user_id, token_id, account_id, name, type, subtype,
				institution_name, current_balance, available_balance,
				iso_currency_code, unofficial_currency_code, account_classification,
				is_active, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, account_id) DO UPDATE SET
				token_id = EXCLUDED.token_id,
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				subtype = EXCLUDED.subtype,
				institution_name = EXCLUDED.institution_name,
				current_balance = EXCLUDED.current_balance,
				available_balance = EXCLUDED.available_balance,
				iso_currency_code = EXCLUDED.iso_currency_code,
				unofficial_currency_code = EXCLUDED.unofficial_currency_code,
				account_classification = EXCLUDED.account_classification,
				is_active = TRUE,
				updated_at = CURRENT_TIMESTAMP
		`

		_, err := pool.Exec(ctx, query,
			userID, tokenID, acc.AccountID, acc.Name, acc.Type, acc.Subtype,
			acc.InstitutionName, acc.Balances.Current, acc.Balances.Available,
			acc.Balances.ISOCurrencyCode, acc.Balances.UnofficialCurrencyCode,
			acc.Classification,
		)
		if err != nil {
			return fmt.Errorf("failed to save account %s: %w", acc.AccountID, err)
		}
	}

	return nil
}

func GetCachedAccounts(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.Account, error) {
	query := `
		SELECT account_id, name, custom_name, type, subtype,
			COALESCE(institution_name, ''), token_id, account_classification,
			current_balance, available_balance,
			COALESCE(iso_currency_code, 'USD'), unofficial_currency_code,
			is_active, updated_at
		FROM accounts
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY institution_name, type, name
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		err := rows.Scan(&acc.AccountID, &acc.Name, &acc.CustomName, &acc.Type, &acc.Subtype,
			&acc.InstitutionName, &acc.TokenID, &acc.Classification,
			&acc.Balances.Current, &acc.Balances.Available,
			&acc.Balances.ISOCurrencyCode, &acc.Balances.UnofficialCurrencyCode,
			&acc.IsActive, &acc.UpdatedAt)
		if err != nil {
			return nil, err
		}
		acc.DisplayName = acc.Name
		if acc.CustomName != nil {
			acc.DisplayName = *acc.CustomName
		}
		acc.FormattedBalance = util.FormatBalance(acc.Balances.Current)
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// normalizeCustomName trims whitespace and maps an empty result to nil,
// which clears the override.
func normalizeCustomName(name string) *string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UpdateAccountCustomName sets or clears the display override for an
// account. Returns false when no row matched.
func UpdateAccountCustomName(ctx context.Context, pool *pgxpool.Pool, userID int64, accountID, customName string) (bool, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE accounts
		SET custom_name = $1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND account_id = $3
	`, normalizeCustomName(customName), userID, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to update custom name: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func DeleteAccountsByToken(ctx context.Context, pool *pgxpool.Pool, userID, tokenID int64) error {
	_, err := pool.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1 AND token_id = $2`, userID, tokenID)
	if err != nil {
		return fmt.Errorf("failed to delete accounts: %w", err)
	}
	return nil
}

func GetAccountSummary(ctx context.Context, pool *pgxpool.Pool, userID int64) (*models.AccountSummary, error) {
	summary := &models.AccountSummary{
		ByClassification: make(map[string]models.BalanceTotal),
		ByType:           make(map[string]models.BalanceTotal),
	}

	rows, err := pool.Query(ctx, `
		SELECT account_classification, COUNT(*), SUM(current_balance)
		FROM accounts
		WHERE user_id = $1 AND is_active = TRUE AND current_balance IS NOT NULL
		GROUP BY account_classification
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var classification string
		var total models.BalanceTotal
		if err := rows.Scan(&classification, &total.Count, &total.TotalBalance); err != nil {
			return nil, err
		}
		summary.ByClassification[classification] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := pool.Query(ctx, `
		SELECT type, COUNT(*), SUM(current_balance)
		FROM accounts
		WHERE user_id = $1 AND is_active = TRUE AND current_balance IS NOT NULL
		GROUP BY type
	`, userID)
	if err != nil {
		return nil, err
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var accType string
		var total models.BalanceTotal
		if err := typeRows.Scan(&accType, &total.Count, &total.TotalBalance); err != nil {
			return nil, err
		}
		summary.ByType[accType] = total
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	// Missing classifications count as zero.
	summary.NetWorth = summary.ByClassification["asset"].TotalBalance -
		summary.ByClassification["liability"].TotalBalance

	return summary, nil
}
