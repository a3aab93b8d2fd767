package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		daysLate     int
		hasTitle     bool
		hasGuarantor bool
		want         models.RiskTier
	}{
		{"unsecured and late", 25, false, false, models.TierCritical},
		{"title secures late loan", 25, true, false, models.TierHighRisk},
		{"guarantor secures late loan", 25, false, true, models.TierHighRisk},
		{"both secure late loan", 40, true, true, models.TierHighRisk},
		{"exactly threshold is not high risk", 21, false, false, models.TierAtRisk},
		{"at risk", 15, false, false, models.TierAtRisk},
		{"fourteen days", 14, false, false, models.TierLowRisk},
		{"low risk", 8, true, true, models.TierLowRisk},
		{"seven days", 7, false, false, models.TierHealthy},
		{"current", 0, false, false, models.TierHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := models.LoanRecord{DaysLate: tt.daysLate, HasTitle: tt.hasTitle, HasGuarantor: tt.hasGuarantor}
			assert.Equal(t, tt.want, Classify(loan))
		})
	}
}

func TestClassifyMonotonicInDaysLate(t *testing.T) {
	for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		prev := -1
		for days := 0; days <= 60; days++ {
			tier := Classify(models.LoanRecord{DaysLate: days, HasTitle: flags[0], HasGuarantor: flags[1]})
			sev := tier.Severity()
			require.GreaterOrEqual(t, sev, prev, "severity dropped at %d days with flags %v", days, flags)
			prev = sev
		}
	}
}

func TestCriticalAndHighRiskAreExclusive(t *testing.T) {
	for days := 0; days <= 40; days++ {
		for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			c := IsCritical(days, flags[0], flags[1])
			h := IsHighRisk(days, flags[0], flags[1])
			assert.False(t, c && h)
			assert.Equal(t, days > LateThreshold, c || h)
		}
	}
}

func TestDerivedFlags(t *testing.T) {
	assert.True(t, HasContract(" YES "))
	assert.False(t, HasContract("no"))
	assert.False(t, HasContract(""))

	assert.True(t, HasGuarantor("John Smith"))
	assert.False(t, HasGuarantor("  NA "))
	assert.False(t, HasGuarantor("NaN"))
	assert.False(t, HasGuarantor(""))

	assert.True(t, HasTitle("Own"))
	assert.True(t, HasTitle(" SAM"))
	assert.False(t, HasTitle("borrower"))

	assert.Equal(t, models.StatusActive, Activity(" ACTIVE "))
	assert.Equal(t, models.StatusInactive, Activity("closed"))
	assert.Equal(t, models.StatusInactive, Activity(""))
}

func TestSummarize(t *testing.T) {
	loans := []models.LoanRecord{
		{Borrower: "A", PrincipalBalance: decimal.NewFromInt(100), DaysLate: 30, ActivityStatus: models.StatusActive, HasContract: true},
		{Borrower: "B", PrincipalBalance: decimal.NewFromInt(900), DaysLate: 30, ActivityStatus: models.StatusActive},
		{Borrower: "C", PrincipalBalance: decimal.NewFromInt(500), DaysLate: 2, HasTitle: true, HasContract: true, ActivityStatus: models.StatusInactive},
	}
	for i := range loans {
		loans[i].RiskTier = Classify(loans[i])
	}

	s := Summarize(loans)
	assert.Equal(t, 3, s.TotalLoans)
	assert.Equal(t, 2, s.ActiveBorrowers)
	assert.Equal(t, 1, s.InactiveBorrowers)
	assert.Equal(t, 2, s.TierCounts[models.TierCritical])
	assert.Equal(t, 1, s.TierCounts[models.TierHealthy])
	assert.Equal(t, 0, s.TierCounts[models.TierHighRisk])
	assert.Equal(t, 1, s.MissingContract)
	assert.Equal(t, 2, s.NoTitleNoGuarantor)
	assert.Equal(t, 66.7, s.CriticalPercentage)
	assert.Equal(t, 33.3, s.MissingContractPercentage)
	require.Len(t, s.TopCritical, 2)
	assert.Equal(t, "B", s.TopCritical[0].Borrower)

	assert.Len(t, FilterByTier(loans, models.TierHealthy), 1)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalLoans)
	assert.Zero(t, s.CriticalPercentage)
	assert.Empty(t, s.TopCritical)
}
