package plaid

import "strings"

const (
	ClassificationAsset     = "asset"
	ClassificationLiability = "liability"
)

var assetSubtypes = map[string]bool{
	"checking":     true,
	"savings":      true,
	"money market": true,
	"cd":           true,
	"brokerage":    true,
	"ira":          true,
	"401k":         true,
}

var liabilitySubtypes = map[string]bool{
	"credit card":    true,
	"line of credit": true,
	"mortgage":       true,
	"auto":           true,
	"student":        true,
}

// ClassifyAccount buckets an account as asset or liability for net-worth
// math. Total by construction: every (type, subtype) pair, known or not,
// gets exactly one of the two values.
func ClassifyAccount(accountType, accountSubtype string) string {
	switch strings.ToLower(accountType) {
	case "depository", "investment", "other":
		return ClassificationAsset
	case "credit", "loan":
		return ClassificationLiability
	}

	subtype := strings.ToLower(accountSubtype)
	if assetSubtypes[subtype] {
		return ClassificationAsset
	}
	if liabilitySubtypes[subtype] {
		return ClassificationLiability
	}
	return ClassificationAsset
}
