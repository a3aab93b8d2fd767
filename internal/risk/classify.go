package risk

import (
	"strings"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

// LateThreshold is the number of days past which a loan needs collector follow-up
const LateThreshold = 21

const (
	atRiskThreshold  = 14
	lowRiskThreshold = 7
)

// Classify maps a loan to its risk tier. The first matching rule wins, in order
// of descending severity.
func Classify(loan models.LoanRecord) models.RiskTier {
	return tierFor(loan.DaysLate, loan.HasTitle, loan.HasGuarantor)
}

func tierFor(daysLate int, hasTitle, hasGuarantor bool) models.RiskTier {
	switch {
	case IsCritical(daysLate, hasTitle, hasGuarantor):
		return models.TierCritical
	case daysLate > LateThreshold:
		return models.TierHighRisk
	case daysLate > atRiskThreshold:
		return models.TierAtRisk
	case daysLate > lowRiskThreshold:
		return models.TierLowRisk
	default:
		return models.TierHealthy
	}
}

// IsCritical reports a loan past the late threshold with neither title nor guarantor
func IsCritical(daysLate int, hasTitle, hasGuarantor bool) bool {
	return daysLate > LateThreshold && !hasTitle && !hasGuarantor
}

// IsHighRisk reports a loan past the late threshold that is secured by a title or guarantor
func IsHighRisk(daysLate int, hasTitle, hasGuarantor bool) bool {
	return daysLate > LateThreshold && !IsCritical(daysLate, hasTitle, hasGuarantor)
}

// HasContract reports whether the contract field says "yes"
func HasContract(field string) bool {
	return strings.EqualFold(strings.TrimSpace(field), "yes")
}

// HasGuarantor reports whether the guarantor field names anyone
func HasGuarantor(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "", "na", "nan":
		return false
	}
	return true
}

// HasTitle reports whether the title is owned by the lender
func HasTitle(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "own", "sam":
		return true
	}
	return false
}

// Activity derives the activity status from the group field
func Activity(group string) models.ActivityStatus {
	if strings.ToLower(strings.TrimSpace(group)) == "active" {
		return models.StatusActive
	}
	return models.StatusInactive
}
