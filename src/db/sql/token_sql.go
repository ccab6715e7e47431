package db

import (
	"budgetsync-server/src/models"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SaveUserToken stores an access token for a user. When the item id is
// present the token is upserted per (user, item); without one it is always
// inserted, so duplicate rows are possible in that case.
func SaveUserToken(ctx context.Context, pool *pgxpool.Pool, userID int64, p models.SaveTokenParams) error {
	if p.ItemID != "" {
		var existingID int64
		err := pool.QueryRow(ctx,
			`SELECT id FROM user_tokens WHERE user_id = $1 AND item_id = $2`,
			userID, p.ItemID).Scan(&existingID)
		if err == nil {
			_, err = pool.Exec(ctx, `
				UPDATE user_tokens
				SET access_token = $1, public_token = $2,
					institution_id = $3, institution_name = $4, updated_at = CURRENT_TIMESTAMP
				WHERE user_id = $5 AND item_id = $6
			`, p.AccessToken, p.PublicToken, p.InstitutionID, p.InstitutionName, userID, p.ItemID)
			if err != nil {
				return fmt.Errorf("failed to update token: %w", err)
			}
			return nil
		}
		if err != pgx.ErrNoRows {
			return fmt.Errorf("failed to look up token: %w", err)
		}
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO user_tokens (user_id, access_token, item_id, public_token, institution_id, institution_name)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
	`, userID, p.AccessToken, p.ItemID, p.PublicToken, p.InstitutionID, p.InstitutionName)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

func GetUserTokens(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.UserToken, error) {
	query := `
		SELECT id, user_id, access_token, COALESCE(item_id, ''),
			COALESCE(institution_id, ''), COALESCE(institution_name, ''),
			created_at, updated_at
		FROM user_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.UserToken
	for rows.Next() {
		var t models.UserToken
		err := rows.Scan(&t.ID, &t.UserID, &t.AccessToken, &t.ItemID,
			&t.InstitutionID, &t.InstitutionName, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

// DeleteUserToken removes one token, or every token for the user when
// tokenID is zero. Dependent accounts go with them via the cascade.
func DeleteUserToken(ctx context.Context, pool *pgxpool.Pool, userID, tokenID int64) error {
	var err error
	if tokenID != 0 {
		_, err = pool.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND id = $2`, userID, tokenID)
	} else {
		_, err = pool.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
