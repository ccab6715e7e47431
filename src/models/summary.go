package models

type BalanceTotal struct {
	Count        int     `json:"count"`
	TotalBalance float64 `json:"total_balance"`
}

// AccountSummary aggregates active accounts by classification and by type.
// NetWorth is always asset total minus liability total, with a missing side
// counted as zero.
type AccountSummary struct {
	ByClassification map[string]BalanceTotal `json:"by_classification"`
	ByType           map[string]BalanceTotal `json:"by_type"`
	NetWorth         float64                 `json:"net_worth"`
}

type CategoryTotal struct {
	Category         string  `json:"category"`
	TransactionCount int     `json:"transaction_count"`
	TotalAmount      float64 `json:"total_amount"`
}

type TransactionSummary struct {
	TotalTransactions    int             `json:"total_transactions"`
	TotalDebits          float64         `json:"total_debits"`
	TotalCredits         float64         `json:"total_credits"`
	AvgTransactionAmount float64         `json:"avg_transaction_amount"`
	NetFlow              float64         `json:"net_flow"`
	TopCategories        []CategoryTotal `json:"top_categories"`
	TopPrimaryCategories []CategoryTotal `json:"top_primary_categories"`
	PeriodDays           int             `json:"period_days"`
}
