package models

import "time"

// ReportRow is an action entry prepared for rendering
type ReportRow struct {
	LoanKey   LoanKey  `json:"loan_key"`
	Borrower  string   `json:"borrower"`
	Balance   string   `json:"balance"`
	DaysLate  int      `json:"days_late"`
	Tier      RiskTier `json:"tier,omitempty"`
	Contacted bool     `json:"contacted"`
	Note      string   `json:"note"`
}

// ReportBucket is one named section of a report
type ReportBucket struct {
	Name         string      `json:"name"`
	Contacted    []ReportRow `json:"contacted,omitempty"`
	NotContacted []ReportRow `json:"not_contacted,omitempty"`
	Rows         []ReportRow `json:"rows,omitempty"`
}

// TakeActionReport is the weekly operational worksheet
type TakeActionReport struct {
	Week            time.Time    `json:"week"`
	Total           int          `json:"total"`
	Contacted       int          `json:"contacted"`
	NotContacted    int          `json:"not_contacted"`
	ContactedPct    string       `json:"contacted_pct"`
	NotContactedPct string       `json:"not_contacted_pct"`
	HighRisk        ReportBucket `json:"high_risk"`
	Critical        ReportBucket `json:"critical"`
}

// MustContactReport is the executive summary of loans escalated for collection
type MustContactReport struct {
	Week         time.Time    `json:"week"`
	ExpectedNote string       `json:"expected_note"`
	HighRisk     ReportBucket `json:"high_risk"`
	Critical     ReportBucket `json:"critical"`
}

// LoanSummary holds dashboard statistics for a loan snapshot
type LoanSummary struct {
	TotalLoans                 int              `json:"total_loans"`
	ActiveBorrowers            int              `json:"active_borrowers"`
	InactiveBorrowers          int              `json:"inactive_borrowers"`
	TierCounts                 map[RiskTier]int `json:"tier_counts"`
	MissingContract            int              `json:"missing_contract"`
	TitleLoans                 int              `json:"title_loans"`
	WithGuarantor              int              `json:"with_guarantor"`
	NoTitleNoGuarantor         int              `json:"no_title_no_guarantor"`
	CriticalPercentage         float64          `json:"critical_percentage"`
	ActivePercentage           float64          `json:"active_percentage"`
	InactivePercentage         float64          `json:"inactive_percentage"`
	MissingContractPercentage  float64          `json:"missing_contract_percentage"`
	TitlePercentage            float64          `json:"title_percentage"`
	GuarantorPercentage        float64          `json:"guarantor_percentage"`
	NoTitleGuarantorPercentage float64          `json:"no_title_guarantor_percentage"`
	TopCritical                []LoanRecord     `json:"top_critical"`
	TopMissingContracts        []LoanRecord     `json:"top_missing_contracts"`
	TopNoTitleNoGuarantor      []LoanRecord     `json:"top_no_title_no_guarantor"`
}
