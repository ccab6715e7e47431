package plaid

import (
	"budgetsync-server/src/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAggregator struct {
	accountsByToken     map[string][]models.Account
	accountsErrByToken  map[string]error
	transactionsByToken map[string][]models.Transaction
	transactionsErr     map[string]error

	exchangeAccessToken string
	exchangeItemID      string
	exchangeErr         error

	institutionID   string
	institutionName string
	institutionErr  error

	linkToken string

	txnStarts []time.Time
	txnEnds   []time.Time
}

func (f *fakeAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	return f.exchangeAccessToken, f.exchangeItemID, f.exchangeErr
}

func (f *fakeAggregator) GetInstitution(ctx context.Context, accessToken string) (string, string, error) {
	return f.institutionID, f.institutionName, f.institutionErr
}

func (f *fakeAggregator) GetAccounts(ctx context.Context, accessToken string) ([]models.Account, error) {
	if err := f.accountsErrByToken[accessToken]; err != nil {
		return nil, err
	}
	return cloneAccounts(f.accountsByToken[accessToken]), nil
}

func (f *fakeAggregator) GetTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]models.Transaction, error) {
	f.txnStarts = append(f.txnStarts, startDate)
	f.txnEnds = append(f.txnEnds, endDate)
	if err := f.transactionsErr[accessToken]; err != nil {
		return nil, err
	}
	return append([]models.Transaction(nil), f.transactionsByToken[accessToken]...), nil
}

func (f *fakeAggregator) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	return f.linkToken, nil
}

// cloneAccounts guards the fake's fixtures against in-place decoration by
// the service.
func cloneAccounts(accounts []models.Account) []models.Account {
	return append([]models.Account(nil), accounts...)
}

type fakeStore struct {
	tokens    []models.UserToken
	tokensErr error

	cachedAccounts  []models.Account
	savedAccounts   map[int64][]models.Account
	saveAccountsErr error

	cachedTransactions []models.Transaction
	savedTransactions  []models.Transaction

	summary *models.TransactionSummary

	savedTokens        []models.SaveTokenParams
	saveTokenErr       error
	deletedTokens      []int64
	deletedByToken     []int64
	deletedTxnAccounts []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		savedAccounts: make(map[int64][]models.Account),
		summary:       &models.TransactionSummary{},
	}
}

func (f *fakeStore) GetUserTokens(ctx context.Context, userID int64) ([]models.UserToken, error) {
	return f.tokens, f.tokensErr
}

func (f *fakeStore) SaveUserToken(ctx context.Context, userID int64, p models.SaveTokenParams) error {
	if f.saveTokenErr != nil {
		return f.saveTokenErr
	}
	f.savedTokens = append(f.savedTokens, p)
	f.tokens = append(f.tokens, models.UserToken{
		ID:              int64(len(f.tokens) + 1),
		UserID:          userID,
		AccessToken:     p.AccessToken,
		ItemID:          p.ItemID,
		InstitutionID:   p.InstitutionID,
		InstitutionName: p.InstitutionName,
	})
	return nil
}

func (f *fakeStore) DeleteUserToken(ctx context.Context, userID, tokenID int64) error {
	f.deletedTokens = append(f.deletedTokens, tokenID)
	return nil
}

func (f *fakeStore) GetCachedAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	return f.cachedAccounts, nil
}

func (f *fakeStore) SaveAccounts(ctx context.Context, userID, tokenID int64, accounts []models.Account) error {
	if f.saveAccountsErr != nil {
		return f.saveAccountsErr
	}
	f.savedAccounts[tokenID] = append([]models.Account(nil), accounts...)
	return nil
}

func (f *fakeStore) DeleteAccountsByToken(ctx context.Context, userID, tokenID int64) error {
	f.deletedByToken = append(f.deletedByToken, tokenID)
	return nil
}

func (f *fakeStore) GetCachedTransactions(ctx context.Context, userID int64, filter models.TransactionFilter) ([]models.Transaction, error) {
	return f.cachedTransactions, nil
}

func (f *fakeStore) SaveTransactions(ctx context.Context, userID int64, transactions []models.Transaction) error {
	f.savedTransactions = append(f.savedTransactions, transactions...)
	return nil
}

func (f *fakeStore) GetTransactionSummary(ctx context.Context, userID int64, filter models.TransactionFilter) (*models.TransactionSummary, error) {
	return f.summary, nil
}

func (f *fakeStore) DeleteTransactionsByAccount(ctx context.Context, userID int64, accountID string) error {
	f.deletedTxnAccounts = append(f.deletedTxnAccounts, accountID)
	return nil
}

func newTestService(api *fakeAggregator, store *fakeStore) *Service {
	svc := NewService(api, store)
	svc.now = func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func testToken(id int64, institutionName string) models.UserToken {
	return models.UserToken{
		ID:              id,
		UserID:          1,
		AccessToken:     "access-" + uuid.NewString(),
		ItemID:          "item-" + uuid.NewString(),
		InstitutionName: institutionName,
	}
}

func floatPtr(v float64) *float64 { return &v }

// ---- accounts ----

func TestGetAccountsServesCacheWhenPresent(t *testing.T) {
	store := newFakeStore()
	store.cachedAccounts = []models.Account{
		{AccountID: "a1", Name: "Checking", InstitutionName: "First Bank", TokenID: 7},
		{AccountID: "a2", Name: "Savings", InstitutionName: "First Bank", TokenID: 7},
	}
	svc := newTestService(&fakeAggregator{}, store)

	result, err := svc.GetAccounts(context.Background(), 1, false)
	require.NoError(t, err)

	assert.True(t, result.IsCached)
	assert.Equal(t, 2, result.TotalAccounts)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Institutions, 1)
	assert.Equal(t, "First Bank", result.Institutions[0].Name)
	assert.Equal(t, 2, result.Institutions[0].AccountCount)
}

func TestGetAccountsNoTokens(t *testing.T) {
	svc := newTestService(&fakeAggregator{}, newFakeStore())

	_, err := svc.GetAccounts(context.Background(), 1, false)
	assert.ErrorIs(t, err, ErrNoLinkedAccount)
}

func TestGetAccountsPartialFailureKeepsGoing(t *testing.T) {
	tokenA := testToken(1, "First Bank")
	tokenB := testToken(2, "Broken Bank")
	tokenC := testToken(3, "Third Bank")

	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			tokenA.AccessToken: {{AccountID: "a1", Name: "Checking", Type: "depository", Subtype: "checking", Balances: models.Balances{Current: floatPtr(100)}}},
			tokenC.AccessToken: {{AccountID: "c1", Name: "Card", Type: "credit", Subtype: "credit card", Balances: models.Balances{Current: floatPtr(-250)}}},
		},
		accountsErrByToken: map[string]error{
			tokenB.AccessToken: errors.New("ITEM_LOGIN_REQUIRED"),
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{tokenA, tokenB, tokenC}
	svc := newTestService(api, store)

	result, err := svc.GetAccounts(context.Background(), 1, true)
	require.NoError(t, err)

	assert.False(t, result.IsCached)
	assert.Equal(t, 2, result.TotalAccounts)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Broken Bank")

	// the failing institution is absent from the institution list
	require.Len(t, result.Institutions, 2)
	assert.Equal(t, "First Bank", result.Institutions[0].Name)
	assert.Equal(t, "Third Bank", result.Institutions[1].Name)

	// decoration happened for the fresh pulls
	assert.Equal(t, ClassificationAsset, result.Accounts[0].Classification)
	assert.Equal(t, "$100.00", result.Accounts[0].FormattedBalance)
	assert.Equal(t, ClassificationLiability, result.Accounts[1].Classification)

	// successful pulls were persisted
	assert.Len(t, store.savedAccounts[1], 1)
	assert.Len(t, store.savedAccounts[3], 1)
	assert.NotContains(t, store.savedAccounts, int64(2))
}

func TestGetAccountsPreservesCustomNames(t *testing.T) {
	token := testToken(1, "First Bank")
	custom := "Rent Account"

	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			token.AccessToken: {{AccountID: "a1", Name: "Checking", Type: "depository"}},
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{token}
	store.cachedAccounts = []models.Account{{AccountID: "a1", Name: "Checking", CustomName: &custom}}
	svc := newTestService(api, store)

	result, err := svc.GetAccounts(context.Background(), 1, true)
	require.NoError(t, err)

	require.Len(t, result.Accounts, 1)
	require.NotNil(t, result.Accounts[0].CustomName)
	assert.Equal(t, custom, *result.Accounts[0].CustomName)
	assert.Equal(t, custom, result.Accounts[0].DisplayName)
}

func TestGetAccountsForcedRefreshPullsRecentTransactions(t *testing.T) {
	token := testToken(1, "First Bank")

	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			token.AccessToken: {{AccountID: "a1", Name: "Checking", Type: "depository"}},
		},
		transactionsByToken: map[string][]models.Transaction{
			token.AccessToken: {{TransactionID: "t1", AccountID: "a1", Amount: 12.5, Date: "2024-03-10"}},
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{token}
	svc := newTestService(api, store)

	_, err := svc.GetAccounts(context.Background(), 1, true)
	require.NoError(t, err)

	require.Len(t, api.txnStarts, 1)
	assert.Equal(t, "2024-02-14", api.txnStarts[0].Format("2006-01-02"))
	assert.Equal(t, "2024-03-15", api.txnEnds[0].Format("2006-01-02"))
	require.Len(t, store.savedTransactions, 1)
	assert.Equal(t, "t1", store.savedTransactions[0].TransactionID)
}

func TestGetAccountsUnnamedInstitutionFallsBack(t *testing.T) {
	token := testToken(1, "")

	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			token.AccessToken: {{AccountID: "a1", Name: "Checking", Type: "depository"}},
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{token}
	svc := newTestService(api, store)

	result, err := svc.GetAccounts(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Institution", result.Accounts[0].InstitutionName)
}

// ---- transactions ----

func TestGetTransactionsServesCacheWhenPresent(t *testing.T) {
	store := newFakeStore()
	store.cachedTransactions = []models.Transaction{{TransactionID: "t1", Date: "2024-03-01"}}
	store.summary = &models.TransactionSummary{TotalTransactions: 1}
	svc := newTestService(&fakeAggregator{}, store)

	result, err := svc.GetTransactions(context.Background(), 1, []string{"depository"}, "", 2024, 3, false)
	require.NoError(t, err)

	assert.True(t, result.IsCached)
	assert.Equal(t, 1, result.TotalTransactions)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 1, result.Summary.TotalTransactions)
}

func TestGetTransactionsFiltersTypesAndSortsDescending(t *testing.T) {
	token := testToken(1, "First Bank")

	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			token.AccessToken: {
				{AccountID: "dep", Name: "Checking", Type: "depository"},
				{AccountID: "inv", Name: "Brokerage", Type: "investment"},
			},
		},
		transactionsByToken: map[string][]models.Transaction{
			token.AccessToken: {
				{TransactionID: "t-old", AccountID: "dep", Amount: 20, Date: "2024-03-01"},
				{TransactionID: "t-skip", AccountID: "inv", Amount: 999, Date: "2024-03-20"},
				{TransactionID: "t-new", AccountID: "dep", Amount: -35, Date: "2024-03-12"},
			},
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{token}
	svc := newTestService(api, store)

	result, err := svc.GetTransactions(context.Background(), 1, []string{"depository"}, "", 2024, 3, true)
	require.NoError(t, err)

	assert.False(t, result.IsCached)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "t-new", result.Transactions[0].TransactionID)
	assert.Equal(t, "t-old", result.Transactions[1].TransactionID)

	assert.Equal(t, "credit", result.Transactions[0].TransactionType)
	assert.Equal(t, "$35.00", result.Transactions[0].FormattedAmount)
	assert.Equal(t, "debit", result.Transactions[1].TransactionType)
	assert.Equal(t, "First Bank", result.Transactions[1].InstitutionName)

	assert.Equal(t, 2024, result.PeriodYear)
	assert.Equal(t, 3, result.PeriodMonth)
	assert.Len(t, store.savedTransactions, 2)
}

func TestGetTransactionsYearDefaultsToCurrent(t *testing.T) {
	token := testToken(1, "First Bank")
	api := &fakeAggregator{
		accountsByToken: map[string][]models.Account{
			token.AccessToken: {{AccountID: "dep", Type: "depository"}},
		},
	}
	store := newFakeStore()
	store.tokens = []models.UserToken{token}
	svc := newTestService(api, store)

	result, err := svc.GetTransactions(context.Background(), 1, nil, "", 0, 0, true)
	require.NoError(t, err)

	assert.Equal(t, 2024, result.PeriodYear)
	require.Len(t, api.txnStarts, 1)
	assert.Equal(t, "2024-01-01", api.txnStarts[0].Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", api.txnEnds[0].Format("2006-01-02"))
}

func TestGetTransactionsNoTokens(t *testing.T) {
	svc := newTestService(&fakeAggregator{}, newFakeStore())

	_, err := svc.GetTransactions(context.Background(), 1, nil, "", 2024, 3, true)
	assert.ErrorIs(t, err, ErrNoLinkedAccount)
}

func TestTransactionDateRange(t *testing.T) {
	start, end := transactionDateRange(2024, 2)
	assert.Equal(t, "2024-02-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", end.Format("2006-01-02"))

	start, end = transactionDateRange(2023, 2)
	assert.Equal(t, "2023-02-28", end.Format("2006-01-02"))
	assert.Equal(t, "2023-02-01", start.Format("2006-01-02"))

	start, end = transactionDateRange(2024, 0)
	assert.Equal(t, "2024-01-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", end.Format("2006-01-02"))
}

// ---- exchange / revoke ----

func TestExchangePublicTokenSuccess(t *testing.T) {
	api := &fakeAggregator{
		exchangeAccessToken: "access-1",
		exchangeItemID:      "item-1",
		institutionID:       "ins_1",
		institutionName:     "First Bank",
		accountsByToken: map[string][]models.Account{
			"access-1": {{AccountID: "a1", Name: "Checking", Type: "depository"}},
		},
	}
	store := newFakeStore()
	svc := newTestService(api, store)

	result, err := svc.ExchangePublicToken(context.Background(), 1, "public-1")
	require.NoError(t, err)

	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "item-1", result.ItemID)
	require.Len(t, store.savedTokens, 1)
	assert.Equal(t, "First Bank", store.savedTokens[0].InstitutionName)

	// account cache was seeded through the newly stored token
	assert.Len(t, store.savedAccounts[1], 1)
	assert.Equal(t, "First Bank", store.savedAccounts[1][0].InstitutionName)
}

func TestExchangePublicTokenInstitutionLookupFailureIsNonFatal(t *testing.T) {
	api := &fakeAggregator{
		exchangeAccessToken: "access-1",
		exchangeItemID:      "item-1",
		institutionErr:      errors.New("institution unavailable"),
	}
	store := newFakeStore()
	svc := newTestService(api, store)

	result, err := svc.ExchangePublicToken(context.Background(), 1, "public-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", result.AccessToken)
	require.Len(t, store.savedTokens, 1)
	assert.Empty(t, store.savedTokens[0].InstitutionName)
}

func TestExchangePublicTokenPersistFailureIsFatal(t *testing.T) {
	api := &fakeAggregator{
		exchangeAccessToken: "access-1",
		exchangeItemID:      "item-1",
	}
	store := newFakeStore()
	store.saveTokenErr = errors.New("db down")
	svc := newTestService(api, store)

	_, err := svc.ExchangePublicToken(context.Background(), 1, "public-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store access token")
}

func TestRevokeAccessTokenSingle(t *testing.T) {
	store := newFakeStore()
	store.tokens = []models.UserToken{testToken(1, "First Bank"), testToken(2, "Second Bank")}
	store.cachedAccounts = []models.Account{
		{AccountID: "a1", TokenID: 1},
		{AccountID: "b1", TokenID: 2},
		{AccountID: "b2", TokenID: 2},
	}
	svc := newTestService(&fakeAggregator{}, store)

	err := svc.RevokeAccessToken(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, store.deletedByToken)
	assert.Equal(t, []int64{2}, store.deletedTokens)

	// only the revoked token's accounts lose their transactions
	assert.Equal(t, []string{"b1", "b2"}, store.deletedTxnAccounts)
}

func TestRevokeAccessTokenUnknownID(t *testing.T) {
	store := newFakeStore()
	store.tokens = []models.UserToken{testToken(1, "First Bank")}
	svc := newTestService(&fakeAggregator{}, store)

	err := svc.RevokeAccessToken(context.Background(), 1, 99)
	require.Error(t, err)
	assert.Empty(t, store.deletedTokens)
	assert.Empty(t, store.deletedByToken)
}

func TestRevokeAccessTokenAll(t *testing.T) {
	store := newFakeStore()
	store.tokens = []models.UserToken{testToken(1, "First Bank"), testToken(2, "Second Bank")}
	store.cachedAccounts = []models.Account{
		{AccountID: "a1", TokenID: 1},
		{AccountID: "b1", TokenID: 2},
	}
	svc := newTestService(&fakeAggregator{}, store)

	err := svc.RevokeAccessToken(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, store.deletedByToken)
	assert.Equal(t, []int64{0}, store.deletedTokens)
	assert.Equal(t, []string{"a1", "b1"}, store.deletedTxnAccounts)
}
