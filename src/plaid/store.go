package plaid

import (
	dbsql "budgetsync-server/src/db/sql"
	"budgetsync-server/src/models"
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the slice of the relational cache the sync service needs.
type Store interface {
	GetUserTokens(ctx context.Context, userID int64) ([]models.UserToken, error)
	SaveUserToken(ctx context.Context, userID int64, p models.SaveTokenParams) error
	DeleteUserToken(ctx context.Context, userID, tokenID int64) error
	GetCachedAccounts(ctx context.Context, userID int64) ([]models.Account, error)
	SaveAccounts(ctx context.Context, userID, tokenID int64, accounts []models.Account) error
	DeleteAccountsByToken(ctx context.Context, userID, tokenID int64) error
	GetCachedTransactions(ctx context.Context, userID int64, f models.TransactionFilter) ([]models.Transaction, error)
	SaveTransactions(ctx context.Context, userID int64, transactions []models.Transaction) error
	GetTransactionSummary(ctx context.Context, userID int64, f models.TransactionFilter) (*models.TransactionSummary, error)
	DeleteTransactionsByAccount(ctx context.Context, userID int64, accountID string) error
}

// SQLStore implements Store on the pgx-backed SQL layer.
type SQLStore struct {
	pool *pgxpool.Pool
}

func NewSQLStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{pool: pool}
}

func (s *SQLStore) GetUserTokens(ctx context.Context, userID int64) ([]models.UserToken, error) {
	return dbsql.GetUserTokens(ctx, s.pool, userID)
}

func (s *SQLStore) SaveUserToken(ctx context.Context, userID int64, p models.SaveTokenParams) error {
	return dbsql.SaveUserToken(ctx, s.pool, userID, p)
}

func (s *SQLStore) DeleteUserToken(ctx context.Context, userID, tokenID int64) error {
	return dbsql.DeleteUserToken(ctx, s.pool, userID, tokenID)
}

func (s *SQLStore) GetCachedAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	return dbsql.GetCachedAccounts(ctx, s.pool, userID)
}

func (s *SQLStore) SaveAccounts(ctx context.Context, userID, tokenID int64, accounts []models.Account) error {
	return dbsql.SaveAccounts(ctx, s.pool, userID, tokenID, accounts)
}

func (s *SQLStore) DeleteAccountsByToken(ctx context.Context, userID, tokenID int64) error {
	return dbsql.DeleteAccountsByToken(ctx, s.pool, userID, tokenID)
}

func (s *SQLStore) GetCachedTransactions(ctx context.Context, userID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	return dbsql.GetCachedTransactions(ctx, s.pool, userID, f)
}

func (s *SQLStore) SaveTransactions(ctx context.Context, userID int64, transactions []models.Transaction) error {
	return dbsql.SaveTransactions(ctx, s.pool, userID, transactions)
}

func (s *SQLStore) GetTransactionSummary(ctx context.Context, userID int64, f models.TransactionFilter) (*models.TransactionSummary, error) {
	return dbsql.GetTransactionSummary(ctx, s.pool, userID, f)
}

func (s *SQLStore) DeleteTransactionsByAccount(ctx context.Context, userID int64, accountID string) error {
	return dbsql.DeleteTransactionsByAccount(ctx, s.pool, userID, accountID)
}
