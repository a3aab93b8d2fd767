package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/risk"
)

// NotContactedNote is shown in place of the note for loans nobody has contacted
const NotContactedNote = "Not Contacted"

// SplitMode selects how the take-action report assigns entries to its two sections
type SplitMode string

const (
	// SplitPosition puts the first half of the ledger under High Risk and the
	// rest under Critical. It relies on the ledger listing High Risk entries first.
	SplitPosition SplitMode = "position"
	// SplitCategory buckets by each entry's category, falling back to the
	// positional half for entries written without one.
	SplitCategory SplitMode = "category"
)

// ParseSplitMode validates a split mode name
func ParseSplitMode(s string) (SplitMode, error) {
	switch m := SplitMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SplitPosition, SplitCategory:
		return m, nil
	}
	return "", fmt.Errorf("unknown report split %q", s)
}

// BuildTakeAction aggregates a ledger into the operational worksheet.
// It returns nil when there is no ledger or it has no entries.
func BuildTakeAction(l *models.WeeklyLedger, mode SplitMode) *models.TakeActionReport {
	if l == nil || len(l.Entries) == 0 {
		return nil
	}

	high, critical := split(l.Entries, mode)

	total := len(l.Entries)
	contacted := 0
	for _, e := range l.Entries {
		if e.Contacted {
			contacted++
		}
	}
	pct := int(math.RoundToEven(float64(contacted) / float64(total) * 100))

	return &models.TakeActionReport{
		Week:            l.Week,
		Total:           total,
		Contacted:       contacted,
		NotContacted:    total - contacted,
		ContactedPct:    fmt.Sprintf("%d%%", pct),
		NotContactedPct: fmt.Sprintf("%d%%", 100-pct),
		HighRisk:        splitTable(string(models.TierHighRisk), models.TierHighRisk, high),
		Critical:        splitTable(string(models.TierCritical), models.TierCritical, critical),
	}
}

func split(entries []models.ActionEntry, mode SplitMode) (high, critical []models.ActionEntry) {
	mid := len(entries) / 2
	if mode != SplitCategory {
		return entries[:mid], entries[mid:]
	}
	for i, e := range entries {
		switch {
		case e.Category == models.TierHighRisk:
			high = append(high, e)
		case e.Category == models.TierCritical:
			critical = append(critical, e)
		case i < mid:
			high = append(high, e)
		default:
			critical = append(critical, e)
		}
	}
	return high, critical
}

func splitTable(name string, tier models.RiskTier, entries []models.ActionEntry) models.ReportBucket {
	bucket := models.ReportBucket{Name: name}
	for _, e := range entries {
		row := models.ReportRow{
			LoanKey:   e.LoanKey,
			Borrower:  e.Borrower,
			Balance:   FormatCurrency(e.Balance),
			DaysLate:  e.DaysLate,
			Tier:      tier,
			Contacted: e.Contacted,
			Note:      e.Note,
		}
		if e.Contacted {
			bucket.Contacted = append(bucket.Contacted, row)
			continue
		}
		row.Note = NotContactedNote
		bucket.NotContacted = append(bucket.NotContacted, row)
	}
	return bucket
}

// NormalizeNote trims, collapses internal whitespace and upper-cases a note
func NormalizeNote(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// NoteMatches reports whether note is the escalation phrase, ignoring case and spacing
func NoteMatches(note, phrase string) bool {
	return NormalizeNote(note) == NormalizeNote(phrase)
}

type loanFacts struct {
	daysLate     int
	hasTitle     bool
	hasGuarantor bool
}

// BuildMustContact selects the entries whose note is the escalation phrase and
// re-buckets them by the current snapshot. Duplicate snapshot rows for a
// borrower combine to the largest days late and any title or guarantor.
// Entries at or below the late threshold are left out. It returns nil when no
// note matches.
func BuildMustContact(l *models.WeeklyLedger, loans []models.LoanRecord, phrase string) *models.MustContactReport {
	if l == nil {
		return nil
	}

	var matched []models.ActionEntry
	for _, e := range l.Entries {
		if NoteMatches(e.Note, phrase) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	facts := make(map[string]loanFacts, len(loans))
	for _, loan := range loans {
		name := strings.TrimSpace(loan.Borrower)
		f := facts[name]
		f.daysLate = max(f.daysLate, loan.DaysLate)
		f.hasTitle = f.hasTitle || loan.HasTitle
		f.hasGuarantor = f.hasGuarantor || loan.HasGuarantor
		facts[name] = f
	}

	r := &models.MustContactReport{
		Week:         l.Week,
		ExpectedNote: phrase,
		HighRisk:     models.ReportBucket{Name: string(models.TierHighRisk)},
		Critical:     models.ReportBucket{Name: string(models.TierCritical)},
	}
	for _, e := range matched {
		borrower := strings.TrimSpace(e.Borrower)
		days, hasTitle, hasGuarantor := e.DaysLate, false, false
		if f, ok := facts[borrower]; ok && borrower != "" {
			days = max(days, f.daysLate)
			hasTitle, hasGuarantor = f.hasTitle, f.hasGuarantor
		}

		row := models.ReportRow{
			LoanKey:   e.LoanKey,
			Borrower:  borrower,
			Balance:   FormatCurrency(e.Balance),
			DaysLate:  days,
			Contacted: e.Contacted,
			Note:      e.Note,
		}
		switch {
		case risk.IsCritical(days, hasTitle, hasGuarantor):
			row.Tier = models.TierCritical
			r.Critical.Rows = append(r.Critical.Rows, row)
		case risk.IsHighRisk(days, hasTitle, hasGuarantor):
			row.Tier = models.TierHighRisk
			r.HighRisk.Rows = append(r.HighRisk.Rows, row)
		}
	}

	byLateness := func(rows []models.ReportRow) {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysLate > rows[j].DaysLate })
	}
	byLateness(r.Critical.Rows)
	byLateness(r.HighRisk.Rows)
	return r
}

// FormatCurrency renders an amount as dollars with thousands separators
func FormatCurrency(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return "$" + sign + b.String() + "." + frac
}
