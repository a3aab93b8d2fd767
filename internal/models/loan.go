package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RiskTier is the delinquency tier of a loan
type RiskTier string

const (
	TierHealthy  RiskTier = "Healthy"
	TierLowRisk  RiskTier = "Low Risk"
	TierAtRisk   RiskTier = "At Risk"
	TierHighRisk RiskTier = "High Risk"
	TierCritical RiskTier = "Critical"
)

// Tiers lists every tier ordered by ascending severity
var Tiers = []RiskTier{TierHealthy, TierLowRisk, TierAtRisk, TierHighRisk, TierCritical}

// Severity returns the position of the tier in Tiers, or -1 for an unknown tier
func (t RiskTier) Severity() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// ParseRiskTier matches a tier name case-insensitively
func ParseRiskTier(s string) (RiskTier, error) {
	for _, tier := range Tiers {
		if strings.EqualFold(strings.TrimSpace(s), string(tier)) {
			return tier, nil
		}
	}
	return "", fmt.Errorf("unknown risk tier %q", s)
}

// ActivityStatus is derived from the snapshot's Group column
type ActivityStatus string

const (
	StatusActive   ActivityStatus = "Active"
	StatusInactive ActivityStatus = "Inactive"
)

// LoanKeySeparator joins borrower and balance inside a LoanKey
const LoanKeySeparator = "|"

// LoanKey identifies a loan across weekly ledgers. It is the (borrower, balance)
// pairing used by the collectors; two loans of one borrower with an equal
// balance collapse into one key.
type LoanKey string

// NewLoanKey builds the canonical key for a borrower and balance
func NewLoanKey(borrower string, balance decimal.Decimal) LoanKey {
	return LoanKey(strings.TrimSpace(borrower) + LoanKeySeparator + balance.String())
}

// Split returns the borrower and balance encoded in the key. The balance is the
// text after the last separator, so borrower names may contain the separator.
func (k LoanKey) Split() (string, decimal.Decimal, error) {
	s := string(k)
	idx := strings.LastIndex(s, LoanKeySeparator)
	if idx < 0 {
		return "", decimal.Zero, fmt.Errorf("loan key %q has no separator", s)
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(s[idx+1:]))
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("loan key %q has invalid balance: %w", s, err)
	}
	return strings.TrimSpace(s[:idx]), balance, nil
}

// Canonical re-encodes the key so that "Ann|1500.0" and "Ann|1500" compare equal
func (k LoanKey) Canonical() LoanKey {
	borrower, balance, err := k.Split()
	if err != nil {
		return k
	}
	return NewLoanKey(borrower, balance)
}

// LoanRecord is one row of the loan snapshot with its derived flags
type LoanRecord struct {
	Borrower         string          `json:"borrower"`
	PrincipalBalance decimal.Decimal `json:"principal_balance"`
	DaysLate         int             `json:"days_late"`
	Group            string          `json:"group,omitempty"`
	Status           string          `json:"status,omitempty"`
	HasTitle         bool            `json:"has_title"`
	HasGuarantor     bool            `json:"has_guarantor"`
	HasContract      bool            `json:"has_contract"`
	ActivityStatus   ActivityStatus  `json:"activity_status"`
	RiskTier         RiskTier        `json:"risk_tier"`
}

// Key returns the loan's identity key
func (l LoanRecord) Key() LoanKey {
	return NewLoanKey(l.Borrower, l.PrincipalBalance)
}
