package plaid

import (
	"budgetsync-server/src/models"

	"github.com/plaid/plaid-go/v41/plaid"
)

func accountFromPlaid(a plaid.AccountBase) models.Account {
	balances := models.Balances{ISOCurrencyCode: "USD"}
	b := a.GetBalances()
	if v, ok := b.GetCurrentOk(); ok {
		balances.Current = v
	}
	if v, ok := b.GetAvailableOk(); ok {
		balances.Available = v
	}
	if v, ok := b.GetIsoCurrencyCodeOk(); ok && v != nil {
		balances.ISOCurrencyCode = *v
	}
	if v, ok := b.GetUnofficialCurrencyCodeOk(); ok {
		balances.UnofficialCurrencyCode = v
	}

	return models.Account{
		AccountID:   a.GetAccountId(),
		Name:        a.GetName(),
		DisplayName: a.GetName(),
		Type:        string(a.GetType()),
		Subtype:     string(a.GetSubtype()),
		Balances:    balances,
		IsActive:    true,
	}
}

func transactionFromPlaid(t plaid.Transaction) models.Transaction {
	txn := models.Transaction{
		TransactionID:      t.GetTransactionId(),
		AccountID:          t.GetAccountId(),
		Amount:             t.GetAmount(),
		ISOCurrencyCode:    "USD",
		Date:               t.GetDate(),
		Name:               t.GetName(),
		Pending:            t.GetPending(),
		CategoryPrimary:    "OTHER",
		CategoryDetailed:   "OTHER",
		CategoryConfidence: "UNKNOWN",
	}

	if v, ok := t.GetIsoCurrencyCodeOk(); ok && v != nil {
		txn.ISOCurrencyCode = *v
	}
	if v, ok := t.GetUnofficialCurrencyCodeOk(); ok {
		txn.UnofficialCurrencyCode = v
	}
	if v, ok := t.GetDatetimeOk(); ok {
		txn.Datetime = v
	}
	if v, ok := t.GetAuthorizedDateOk(); ok && v != nil {
		txn.AuthorizedDate = *v
	}
	if v, ok := t.GetAuthorizedDatetimeOk(); ok {
		txn.AuthorizedDatetime = v
	}
	if v, ok := t.GetMerchantNameOk(); ok {
		txn.MerchantName = v
	}
	if v, ok := t.GetAccountOwnerOk(); ok {
		txn.AccountOwner = v
	}

	// Legacy category pair.
	if categories := t.GetCategory(); len(categories) > 0 {
		txn.Category = &categories[0]
		if len(categories) > 1 {
			txn.Subcategory = &categories[1]
		}
	}

	// Newer taxonomy, falling back to OTHER/UNKNOWN when absent.
	if pfc, ok := t.GetPersonalFinanceCategoryOk(); ok && pfc != nil {
		if primary := pfc.GetPrimary(); primary != "" {
			txn.CategoryPrimary = primary
		}
		if detailed := pfc.GetDetailed(); detailed != "" {
			txn.CategoryDetailed = detailed
		}
		if confidence := pfc.GetConfidenceLevel(); confidence != "" {
			txn.CategoryConfidence = confidence
		}
	}

	return txn
}
