package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeekTagLayout is the date layout of week tags and ledger file names
const WeekTagLayout = "2006-01-02"

// ActionEntry is a collector follow-up record for one loan in one week
type ActionEntry struct {
	Week      time.Time       `json:"week"`
	LoanKey   LoanKey         `json:"loan_key"`
	Borrower  string          `json:"borrower"`
	Balance   decimal.Decimal `json:"balance"`
	DaysLate  int             `json:"days_late"`
	Category  RiskTier        `json:"category,omitempty"`
	Contacted bool            `json:"contacted"`
	Note      string          `json:"note"`
}

// Resolved reports whether the entry no longer needs to be carried forward
func (e ActionEntry) Resolved() bool {
	return e.Contacted && e.Note != ""
}

// Untouched reports whether no collector has acted on the entry yet
func (e ActionEntry) Untouched() bool {
	return !e.Contacted && e.Note == ""
}

// WeeklyLedger is the ordered set of action entries for one week tag.
// Version identifies the persisted revision; it is empty for a ledger that was never saved.
type WeeklyLedger struct {
	Week    time.Time     `json:"week"`
	Entries []ActionEntry `json:"entries"`
	Version string        `json:"version,omitempty"`
}

// WeekTag formats the ledger's week
func (l *WeeklyLedger) WeekTag() string {
	return l.Week.Format(WeekTagLayout)
}

// Submission is a collector's update for one loan
type Submission struct {
	Contacted bool   `json:"contacted"`
	Note      string `json:"note"`
}

// ActionView is a current-week entry annotated with advisory carry-forward context
type ActionView struct {
	ActionEntry
	CarriedFrom *time.Time `json:"carried_from,omitempty"`
}
