package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

// fileEntry is the on-disk shape of an action entry. Older files written by
// the weekly seeding job lack loan_key and category, and files written by the
// action form lack days_late; both decode into the same ActionEntry.
type fileEntry struct {
	Week      string      `json:"week,omitempty"`
	LoanKey   string      `json:"loan_key,omitempty"`
	Borrower  string      `json:"borrower"`
	Balance   json.Number `json:"balance"`
	DaysLate  json.Number `json:"days_late,omitempty"`
	Category  string      `json:"category,omitempty"`
	Contacted bool        `json:"contacted"`
	Note      string      `json:"note"`
}

func encodeLedger(l *models.WeeklyLedger) ([]byte, error) {
	entries := make([]fileEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, fileEntry{
			Week:      FormatWeekTag(l.Week),
			LoanKey:   string(e.LoanKey),
			Borrower:  e.Borrower,
			Balance:   json.Number(e.Balance.String()),
			DaysLate:  json.Number(fmt.Sprint(e.DaysLate)),
			Category:  string(e.Category),
			Contacted: e.Contacted,
			Note:      e.Note,
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger %s: %w", FormatWeekTag(l.Week), err)
	}
	return data, nil
}

func decodeLedger(week time.Time, data []byte) (*models.WeeklyLedger, error) {
	var raw []fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode ledger %s: %w", FormatWeekTag(week), err)
	}

	l := &models.WeeklyLedger{Week: week, Entries: make([]models.ActionEntry, 0, len(raw)), Version: digest(data)}
	for i, r := range raw {
		e, err := r.toEntry(week)
		if err != nil {
			return nil, fmt.Errorf("ledger %s entry %d: %w", FormatWeekTag(week), i, err)
		}
		l.Entries = append(l.Entries, e)
	}
	return l, nil
}

func (r fileEntry) toEntry(week time.Time) (models.ActionEntry, error) {
	e := models.ActionEntry{
		Week:      week,
		Borrower:  strings.TrimSpace(r.Borrower),
		Contacted: r.Contacted,
		Note:      r.Note,
	}

	if r.Balance != "" {
		balance, err := decimal.NewFromString(r.Balance.String())
		if err != nil {
			return e, fmt.Errorf("invalid balance %q: %w", r.Balance, err)
		}
		e.Balance = balance
	}
	if r.DaysLate != "" {
		days, err := r.DaysLate.Float64()
		if err != nil {
			return e, fmt.Errorf("invalid days_late %q: %w", r.DaysLate, err)
		}
		e.DaysLate = int(days)
	}
	if r.Category != "" {
		if tier, err := models.ParseRiskTier(r.Category); err == nil {
			e.Category = tier
		}
	}

	if r.LoanKey == "" {
		e.LoanKey = models.NewLoanKey(e.Borrower, e.Balance)
		return e, nil
	}
	e.LoanKey = models.LoanKey(r.LoanKey).Canonical()
	if e.Borrower == "" || r.Balance == "" {
		borrower, balance, err := e.LoanKey.Split()
		if err != nil {
			return e, err
		}
		if e.Borrower == "" {
			e.Borrower = borrower
		}
		if r.Balance == "" {
			e.Balance = balance
		}
	}
	return e, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
