package models

import "time"

type Balances struct {
	Current                *float64 `json:"current"`
	Available              *float64 `json:"available"`
	ISOCurrencyCode        string   `json:"iso_currency_code"`
	UnofficialCurrencyCode *string  `json:"unofficial_currency_code"`
}

// Account is the typed record for a linked bank account, both as normalized
// from the aggregator API and as read back from the cache.
type Account struct {
	AccountID        string     `json:"account_id"`
	Name             string     `json:"name"`
	CustomName       *string    `json:"custom_name"`
	DisplayName      string     `json:"display_name"`
	Type             string     `json:"type"`
	Subtype          string     `json:"subtype"`
	InstitutionName  string     `json:"institution_name"`
	TokenID          int64      `json:"token_id"`
	Classification   string     `json:"account_classification"`
	Balances         Balances   `json:"balances"`
	IsActive         bool       `json:"is_active"`
	FormattedBalance string     `json:"formatted_balance"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

type Institution struct {
	Name         string `json:"name"`
	ID           string `json:"id,omitempty"`
	ItemID       string `json:"item_id,omitempty"`
	TokenID      int64  `json:"token_id"`
	AccountCount int    `json:"account_count"`
}
