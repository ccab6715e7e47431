package models

import "time"

// Transaction follows the sign convention of the aggregator: positive amounts
// are debits (outflows), negative amounts are credits (inflows).
type Transaction struct {
	TransactionID          string     `json:"transaction_id"`
	AccountID              string     `json:"account_id"`
	AccountName            string     `json:"account_name,omitempty"`
	AccountType            string     `json:"account_type,omitempty"`
	AccountSubtype         string     `json:"account_subtype,omitempty"`
	Amount                 float64    `json:"amount"`
	ISOCurrencyCode        string     `json:"iso_currency_code"`
	UnofficialCurrencyCode *string    `json:"unofficial_currency_code"`
	Date                   string     `json:"date"`
	Datetime               *time.Time `json:"datetime"`
	AuthorizedDate         string     `json:"authorized_date,omitempty"`
	AuthorizedDatetime     *time.Time `json:"authorized_datetime"`
	Name                   string     `json:"name"`
	MerchantName           *string    `json:"merchant_name"`
	AccountOwner           *string    `json:"account_owner"`
	Category               *string    `json:"category"`
	Subcategory            *string    `json:"subcategory"`
	CategoryPrimary        string     `json:"category_primary"`
	CategoryDetailed       string     `json:"category_detailed"`
	CategoryConfidence     string     `json:"category_confidence"`
	TransactionType        string     `json:"transaction_type"`
	Pending                bool       `json:"pending"`
	InstitutionName        string     `json:"institution_name"`
	FormattedAmount        string     `json:"formatted_amount"`
	UpdatedAt              *time.Time `json:"updated_at,omitempty"`
}

// TransactionFilter narrows cached transaction reads. Zero values mean
// "no filter" for Year and Month; AccountID takes precedence over
// AccountTypes, mirroring the store queries.
type TransactionFilter struct {
	AccountTypes []string
	AccountID    string
	Year         int
	Month        int
	Limit        int
	Offset       int
}
