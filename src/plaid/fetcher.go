package plaid

import (
	"budgetsync-server/src/models"
	"budgetsync-server/src/util"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// ErrNoLinkedAccount is returned by sync operations when the user has no
// access tokens at all; partial failures never surface as errors, only as
// entries in the result's error list.
var ErrNoLinkedAccount = errors.New("no access tokens found for user, please connect a bank account first")

const unknownInstitution = "Unknown Institution"

// Aggregator is the slice of the external financial-data API the sync
// service needs. Client is the production implementation.
type Aggregator interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	GetInstitution(ctx context.Context, accessToken string) (institutionID, institutionName string, err error)
	GetAccounts(ctx context.Context, accessToken string) ([]models.Account, error)
	GetTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]models.Transaction, error)
	CreateLinkToken(ctx context.Context, userID int64) (string, error)
}

// Service orchestrates synchronization between the aggregator API and the
// relational cache. All operations are request-scoped and sequential; a
// failing institution never aborts its siblings.
type Service struct {
	api   Aggregator
	store Store
	now   func() time.Time
}

func NewService(api Aggregator, store Store) *Service {
	return &Service{api: api, store: store, now: time.Now}
}

// GetAccounts returns the user's accounts across all linked institutions,
// serving the cache unless it is empty or a refresh is forced. A forced
// refresh also re-pulls the trailing 30 days of transactions per
// institution, best-effort.
func (s *Service) GetAccounts(ctx context.Context, userID int64, forceRefresh bool) (*models.AccountsResult, error) {
	if !forceRefresh {
		cached, err := s.store.GetCachedAccounts(ctx, userID)
		if err != nil {
			log.Printf("ERROR: Failed to read cached accounts for user %d: %v", userID, err)
		} else if len(cached) > 0 {
			return models.CachedAccounts(cached, groupInstitutions(cached)), nil
		}
	}

	tokens, err := s.store.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrNoLinkedAccount
	}

	customNames := s.cachedCustomNames(ctx, userID)

	var allAccounts []models.Account
	var institutions []models.Institution
	var errs []string

	for _, token := range tokens {
		institutionName := token.InstitutionName
		if institutionName == "" {
			institutionName = unknownInstitution
		}

		accounts, err := s.api.GetAccounts(ctx, token.AccessToken)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to get accounts from %s: %v", institutionName, err))
			continue
		}

		for i := range accounts {
			s.decorateAccount(&accounts[i], token.ID, institutionName, customNames)
		}

		allAccounts = append(allAccounts, accounts...)
		institutions = append(institutions, models.Institution{
			Name:         institutionName,
			ID:           token.InstitutionID,
			ItemID:       token.ItemID,
			TokenID:      token.ID,
			AccountCount: len(accounts),
		})

		if err := s.store.SaveAccounts(ctx, userID, token.ID, accounts); err != nil {
			log.Printf("ERROR: Failed to save accounts for user %d, token %d: %v", userID, token.ID, err)
		}

		if forceRefresh {
			if err := s.refreshRecentTransactions(ctx, userID, token.AccessToken, institutionName, accounts); err != nil {
				errs = append(errs, fmt.Sprintf("Failed to refresh transactions from %s: %v", institutionName, err))
			}
		}
	}

	return models.FreshAccounts(allAccounts, institutions, errs), nil
}

// refreshRecentTransactions re-pulls a fixed trailing 30-day window for one
// institution's accounts.
func (s *Service) refreshRecentTransactions(ctx context.Context, userID int64, accessToken, institutionName string, accounts []models.Account) error {
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -30)

	transactions, err := s.fetchTransactionsForToken(ctx, accessToken, accounts, startDate, endDate)
	if err != nil {
		return err
	}
	formatTransactions(transactions, institutionName)

	return s.store.SaveTransactions(ctx, userID, transactions)
}

// GetTransactions returns transactions for the requested account types and
// period, cache-first unless forced. Year defaults to the current year.
func (s *Service) GetTransactions(ctx context.Context, userID int64, accountTypes []string, accountID string, year, month int, forceRefresh bool) (*models.TransactionsResult, error) {
	if year == 0 {
		year = s.now().Year()
	}

	filter := models.TransactionFilter{
		AccountTypes: accountTypes,
		AccountID:    accountID,
		Year:         year,
		Month:        month,
	}

	if !forceRefresh {
		cached, err := s.store.GetCachedTransactions(ctx, userID, filter)
		if err != nil {
			log.Printf("ERROR: Failed to read cached transactions for user %d: %v", userID, err)
		} else if len(cached) > 0 {
			summary, err := s.store.GetTransactionSummary(ctx, userID, filter)
			if err != nil {
				return nil, fmt.Errorf("failed to summarize transactions: %w", err)
			}
			return models.CachedTransactions(cached, summary, accountTypes), nil
		}
	}

	tokens, err := s.store.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrNoLinkedAccount
	}

	startDate, endDate := transactionDateRange(year, month)

	var allTransactions []models.Transaction
	var errs []string

	for _, token := range tokens {
		institutionName := token.InstitutionName
		if institutionName == "" {
			institutionName = unknownInstitution
		}

		accounts, err := s.api.GetAccounts(ctx, token.AccessToken)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to get transactions from %s: %v", institutionName, err))
			continue
		}
		accounts = filterAccountsByType(accounts, accountTypes)
		if len(accounts) == 0 {
			continue
		}

		transactions, err := s.fetchTransactionsForToken(ctx, token.AccessToken, accounts, startDate, endDate)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to get transactions from %s: %v", institutionName, err))
			continue
		}
		formatTransactions(transactions, institutionName)

		allTransactions = append(allTransactions, transactions...)

		if err := s.store.SaveTransactions(ctx, userID, transactions); err != nil {
			log.Printf("ERROR: Failed to save transactions for user %d: %v", userID, err)
		}
	}

	// Newest first. Dates are compared as ISO strings because time-of-day
	// is not always present.
	sort.SliceStable(allTransactions, func(i, j int) bool {
		return allTransactions[i].Date > allTransactions[j].Date
	})

	summaryFilter := models.TransactionFilter{AccountTypes: accountTypes, Year: year, Month: month}
	summary, err := s.store.GetTransactionSummary(ctx, userID, summaryFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}

	return models.FreshTransactions(allTransactions, summary, accountTypes, year, month, errs), nil
}

// ExchangePublicToken swaps a public token for a long-lived access token,
// persists it, and best-effort seeds the account cache. Only the persist
// step is fatal; institution metadata and the initial pull are recoverable.
func (s *Service) ExchangePublicToken(ctx context.Context, userID int64, publicToken string) (*models.ExchangeResult, error) {
	accessToken, itemID, err := s.api.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	institutionID, institutionName, err := s.api.GetInstitution(ctx, accessToken)
	if err != nil {
		log.Printf("WARN: Could not fetch institution information for user %d: %v", userID, err)
	}

	err = s.store.SaveUserToken(ctx, userID, models.SaveTokenParams{
		AccessToken:     accessToken,
		ItemID:          itemID,
		PublicToken:     publicToken,
		InstitutionID:   institutionID,
		InstitutionName: institutionName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	if tokenID, ok := s.findTokenID(ctx, userID, itemID); ok {
		if err := s.seedAccounts(ctx, userID, tokenID, accessToken, institutionName); err != nil {
			log.Printf("WARN: Could not fetch initial account data for user %d: %v", userID, err)
		}
	}

	return &models.ExchangeResult{AccessToken: accessToken, ItemID: itemID}, nil
}

func (s *Service) findTokenID(ctx context.Context, userID int64, itemID string) (int64, bool) {
	tokens, err := s.store.GetUserTokens(ctx, userID)
	if err != nil {
		log.Printf("ERROR: Failed to load tokens for user %d: %v", userID, err)
		return 0, false
	}
	for _, token := range tokens {
		if token.ItemID == itemID {
			return token.ID, true
		}
	}
	return 0, false
}

func (s *Service) seedAccounts(ctx context.Context, userID, tokenID int64, accessToken, institutionName string) error {
	accounts, err := s.api.GetAccounts(ctx, accessToken)
	if err != nil {
		return err
	}
	if institutionName == "" {
		institutionName = unknownInstitution
	}
	for i := range accounts {
		s.decorateAccount(&accounts[i], tokenID, institutionName, nil)
	}
	return s.store.SaveAccounts(ctx, userID, tokenID, accounts)
}

// RevokeAccessToken deletes one token, or all of the user's tokens when
// tokenID is zero, along with the accounts cached under them.
func (s *Service) RevokeAccessToken(ctx context.Context, userID, tokenID int64) error {
	tokens, err := s.store.GetUserTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load tokens: %w", err)
	}

	if tokenID != 0 {
		found := false
		for _, token := range tokens {
			if token.ID == tokenID {
				found = true
				break
			}
		}
		if !found {
			return errors.New("token not found")
		}
		if err := s.deleteTokenData(ctx, userID, tokenID); err != nil {
			return err
		}
		return s.store.DeleteUserToken(ctx, userID, tokenID)
	}

	for _, token := range tokens {
		if err := s.deleteTokenData(ctx, userID, token.ID); err != nil {
			return err
		}
	}
	return s.store.DeleteUserToken(ctx, userID, 0)
}

// deleteTokenData removes the accounts cached under a token along with
// their transactions. Transactions reference accounts by the aggregator's
// string id, not a foreign key, so the cascade does not reach them.
func (s *Service) deleteTokenData(ctx context.Context, userID, tokenID int64) error {
	accounts, err := s.store.GetCachedAccounts(ctx, userID)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if acc.TokenID != tokenID {
			continue
		}
		if err := s.store.DeleteTransactionsByAccount(ctx, userID, acc.AccountID); err != nil {
			return err
		}
	}
	return s.store.DeleteAccountsByToken(ctx, userID, tokenID)
}

func (s *Service) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	return s.api.CreateLinkToken(ctx, userID)
}

func (s *Service) HasAccessToken(ctx context.Context, userID int64) bool {
	tokens, err := s.store.GetUserTokens(ctx, userID)
	return err == nil && len(tokens) > 0
}

func (s *Service) GetInstitutionsCount(ctx context.Context, userID int64) int {
	tokens, err := s.store.GetUserTokens(ctx, userID)
	if err != nil {
		return 0
	}
	return len(tokens)
}

// decorateAccount tags a freshly pulled account with institution, token,
// classification, and display fields, merging any preserved custom name.
func (s *Service) decorateAccount(acc *models.Account, tokenID int64, institutionName string, customNames map[string]string) {
	acc.InstitutionName = institutionName
	acc.TokenID = tokenID
	acc.Classification = ClassifyAccount(acc.Type, acc.Subtype)
	acc.FormattedBalance = util.FormatBalance(acc.Balances.Current)

	if name, ok := customNames[acc.AccountID]; ok {
		custom := name
		acc.CustomName = &custom
		acc.DisplayName = custom
	} else {
		acc.CustomName = nil
		acc.DisplayName = acc.Name
	}
}

// cachedCustomNames loads the user-set display overrides so a refresh never
// erases them.
func (s *Service) cachedCustomNames(ctx context.Context, userID int64) map[string]string {
	cached, err := s.store.GetCachedAccounts(ctx, userID)
	if err != nil {
		log.Printf("ERROR: Failed to read cached accounts for user %d: %v", userID, err)
		return nil
	}
	names := make(map[string]string)
	for _, acc := range cached {
		if acc.CustomName != nil && *acc.CustomName != "" {
			names[acc.AccountID] = *acc.CustomName
		}
	}
	return names
}

func (s *Service) fetchTransactionsForToken(ctx context.Context, accessToken string, accounts []models.Account, startDate, endDate time.Time) ([]models.Transaction, error) {
	transactions, err := s.api.GetTransactions(ctx, accessToken, startDate, endDate)
	if err != nil {
		return nil, err
	}

	relevant := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		relevant[acc.AccountID] = true
	}

	filtered := transactions[:0]
	for _, txn := range transactions {
		if relevant[txn.AccountID] {
			filtered = append(filtered, txn)
		}
	}
	return filtered, nil
}

func formatTransactions(transactions []models.Transaction, institutionName string) {
	for i := range transactions {
		transactions[i].InstitutionName = institutionName
		transactions[i].FormattedAmount = util.FormatUSD(math.Abs(transactions[i].Amount))
		if transactions[i].Amount > 0 {
			transactions[i].TransactionType = "debit"
		} else {
			transactions[i].TransactionType = "credit"
		}
	}
}

func filterAccountsByType(accounts []models.Account, accountTypes []string) []models.Account {
	if len(accountTypes) == 0 {
		return accounts
	}
	wanted := make(map[string]bool, len(accountTypes))
	for _, t := range accountTypes {
		wanted[t] = true
	}
	filtered := accounts[:0]
	for _, acc := range accounts {
		if wanted[acc.Type] {
			filtered = append(filtered, acc)
		}
	}
	return filtered
}

// transactionDateRange gives the inclusive bounds for a month, or the whole
// year when no month is requested.
func transactionDateRange(year, month int) (time.Time, time.Time) {
	if month != 0 {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return start, end
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func groupInstitutions(accounts []models.Account) []models.Institution {
	byName := make(map[string]*models.Institution)
	var order []string
	for _, acc := range accounts {
		inst, ok := byName[acc.InstitutionName]
		if !ok {
			inst = &models.Institution{Name: acc.InstitutionName, TokenID: acc.TokenID}
			byName[acc.InstitutionName] = inst
			order = append(order, acc.InstitutionName)
		}
		inst.AccountCount++
	}

	institutions := make([]models.Institution, 0, len(order))
	for _, name := range order {
		institutions = append(institutions, *byName[name])
	}
	return institutions
}
