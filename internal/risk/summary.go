package risk

import (
	"math"
	"sort"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

const topN = 10

// Summarize computes dashboard statistics for a snapshot
func Summarize(loans []models.LoanRecord) models.LoanSummary {
	s := models.LoanSummary{
		TotalLoans: len(loans),
		TierCounts: make(map[models.RiskTier]int, len(models.Tiers)),
	}
	for _, tier := range models.Tiers {
		s.TierCounts[tier] = 0
	}

	var critical, missingContract, noTitleNoGuarantor []models.LoanRecord
	for _, loan := range loans {
		tier := loan.RiskTier
		if tier == "" {
			tier = Classify(loan)
		}
		s.TierCounts[tier]++

		if loan.ActivityStatus == models.StatusActive {
			s.ActiveBorrowers++
		} else {
			s.InactiveBorrowers++
		}
		if tier == models.TierCritical {
			critical = append(critical, loan)
		}
		if !loan.HasContract {
			s.MissingContract++
			missingContract = append(missingContract, loan)
		}
		if loan.HasTitle {
			s.TitleLoans++
		}
		if loan.HasGuarantor {
			s.WithGuarantor++
		}
		if !loan.HasTitle && !loan.HasGuarantor {
			s.NoTitleNoGuarantor++
			noTitleNoGuarantor = append(noTitleNoGuarantor, loan)
		}
	}

	s.CriticalPercentage = percentage(s.TierCounts[models.TierCritical], s.TotalLoans)
	s.ActivePercentage = percentage(s.ActiveBorrowers, s.TotalLoans)
	s.InactivePercentage = percentage(s.InactiveBorrowers, s.TotalLoans)
	s.MissingContractPercentage = percentage(s.MissingContract, s.TotalLoans)
	s.TitlePercentage = percentage(s.TitleLoans, s.TotalLoans)
	s.GuarantorPercentage = percentage(s.WithGuarantor, s.TotalLoans)
	s.NoTitleGuarantorPercentage = percentage(s.NoTitleNoGuarantor, s.TotalLoans)

	s.TopCritical = largestBalances(critical, topN)
	s.TopMissingContracts = largestBalances(missingContract, topN)
	s.TopNoTitleNoGuarantor = largestBalances(noTitleNoGuarantor, topN)
	return s
}

// percentage rounds part/total to one decimal place
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func largestBalances(loans []models.LoanRecord, n int) []models.LoanRecord {
	sorted := make([]models.LoanRecord, len(loans))
	copy(sorted, loans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PrincipalBalance.GreaterThan(sorted[j].PrincipalBalance)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FilterByTier returns the loans in the given tier, preserving snapshot order
func FilterByTier(loans []models.LoanRecord, tier models.RiskTier) []models.LoanRecord {
	var out []models.LoanRecord
	for _, loan := range loans {
		if loan.RiskTier == tier {
			out = append(out, loan)
		}
	}
	return out
}
