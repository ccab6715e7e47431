package models

// AccountsResult is the aggregate of an account read. Cached results carry no
// errors by construction; fresh results carry whatever per-institution
// failures were collected during the fan-out.
type AccountsResult struct {
	Accounts              []Account     `json:"accounts"`
	Institutions          []Institution `json:"institutions"`
	TotalAccounts         int           `json:"total_accounts"`
	ConnectedInstitutions int           `json:"connected_institutions"`
	Errors                []string      `json:"errors"`
	IsCached              bool          `json:"is_cached"`
}

func CachedAccounts(accounts []Account, institutions []Institution) *AccountsResult {
	return &AccountsResult{
		Accounts:              accounts,
		Institutions:          institutions,
		TotalAccounts:         len(accounts),
		ConnectedInstitutions: len(institutions),
		Errors:                []string{},
		IsCached:              true,
	}
}

func FreshAccounts(accounts []Account, institutions []Institution, errs []string) *AccountsResult {
	if errs == nil {
		errs = []string{}
	}
	return &AccountsResult{
		Accounts:              accounts,
		Institutions:          institutions,
		TotalAccounts:         len(accounts),
		ConnectedInstitutions: len(institutions),
		Errors:                errs,
		IsCached:              false,
	}
}

type TransactionsResult struct {
	Transactions       []Transaction       `json:"transactions"`
	Summary            *TransactionSummary `json:"summary"`
	TotalTransactions  int                 `json:"total_transactions"`
	Errors             []string            `json:"errors"`
	IsCached           bool                `json:"is_cached"`
	AccountTypesFilter []string            `json:"account_types_filter"`
	PeriodYear         int                 `json:"period_year,omitempty"`
	PeriodMonth        int                 `json:"period_month,omitempty"`
}

func CachedTransactions(txns []Transaction, summary *TransactionSummary, accountTypes []string) *TransactionsResult {
	return &TransactionsResult{
		Transactions:       txns,
		Summary:            summary,
		TotalTransactions:  len(txns),
		Errors:             []string{},
		IsCached:           true,
		AccountTypesFilter: accountTypes,
	}
}

func FreshTransactions(txns []Transaction, summary *TransactionSummary, accountTypes []string, year, month int, errs []string) *TransactionsResult {
	if errs == nil {
		errs = []string{}
	}
	return &TransactionsResult{
		Transactions:       txns,
		Summary:            summary,
		TotalTransactions:  len(txns),
		Errors:             errs,
		IsCached:           false,
		AccountTypesFilter: accountTypes,
		PeriodYear:         year,
		PeriodMonth:        month,
	}
}
