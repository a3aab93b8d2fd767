package recorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/models"
)

var (
	// ErrWeekClosed is returned when a submission targets a week other than the current one
	ErrWeekClosed = errors.New("only the current week's ledger accepts actions")
	// ErrInvalidLoanKey is returned when a submitted loan key cannot be split into borrower and balance
	ErrInvalidLoanKey = errors.New("invalid loan key")
)

// Mode selects how a submission batch is applied to the stored ledger
type Mode string

const (
	// ModeReplace rewrites the ledger with exactly the submitted entries.
	// Tracked loans missing from the batch are dropped.
	ModeReplace Mode = "replace"
	// ModeMerge updates the submitted entries and keeps every other row.
	ModeMerge Mode = "merge"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeReplace, ModeMerge:
		return m, nil
	}
	return "", fmt.Errorf("unknown recorder mode %q", s)
}

// Recorder applies collector submissions to the current week's ledger
type Recorder struct {
	store *ledger.Store
	mode  Mode
	log   *logrus.Logger
}

// NewRecorder creates a recorder writing through store
func NewRecorder(store *ledger.Store, mode Mode, log *logrus.Logger) *Recorder {
	return &Recorder{store: store, mode: mode, log: log}
}

// Mode returns the configured write mode
func (r *Recorder) Mode() Mode {
	return r.mode
}

// Record writes a complete replacement of the week's ledger built from the
// submissions. A non-empty expectedVersion must match the stored ledger.
func (r *Recorder) Record(ctx context.Context, week time.Time, submissions map[models.LoanKey]models.Submission, expectedVersion string) (*models.WeeklyLedger, error) {
	if !week.Equal(r.store.CurrentWeek()) {
		return nil, fmt.Errorf("%w: %s", ErrWeekClosed, ledger.FormatWeekTag(week))
	}

	subs, err := normalize(submissions)
	if err != nil {
		return nil, err
	}

	prior, err := r.store.Load(ctx, week)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		prior = &models.WeeklyLedger{Week: week}
	case err != nil:
		return nil, err
	}
	if expectedVersion != "" && expectedVersion != prior.Version {
		return nil, fmt.Errorf("%w: %s", ledger.ErrVersionConflict, ledger.FormatWeekTag(week))
	}

	var next []models.ActionEntry
	switch r.mode {
	case ModeMerge:
		next = merge(week, prior.Entries, subs)
	default:
		next = replace(week, prior.Entries, subs)
	}

	saved, err := r.store.Save(ctx, &models.WeeklyLedger{Week: week, Entries: next}, prior.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to record actions: %w", err)
	}

	logger := r.log.WithFields(logrus.Fields{
		"week":        ledger.FormatWeekTag(week),
		"mode":        r.mode,
		"submissions": len(subs),
		"entries":     len(saved.Entries),
	})
	if dropped := len(prior.Entries) - countKept(prior.Entries, subs); r.mode == ModeReplace && dropped > 0 {
		logger.Warnf("Replace mode dropped %d tracked loans absent from the submission", dropped)
	}
	logger.Info("Actions recorded")
	return saved, nil
}

func normalize(submissions map[models.LoanKey]models.Submission) (map[models.LoanKey]models.Submission, error) {
	out := make(map[models.LoanKey]models.Submission, len(submissions))
	for key, sub := range submissions {
		if _, _, err := key.Split(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLoanKey, err)
		}
		canonical := key.Canonical()
		if _, dup := out[canonical]; dup {
			return nil, fmt.Errorf("%w: more than one submission for %s", ErrInvalidLoanKey, canonical)
		}
		sub.Note = strings.TrimSpace(sub.Note)
		out[canonical] = sub
	}
	return out, nil
}

// replace keeps the prior order for loans that were already tracked and
// appends new loans sorted by key.
func replace(week time.Time, prior []models.ActionEntry, subs map[models.LoanKey]models.Submission) []models.ActionEntry {
	next := make([]models.ActionEntry, 0, len(subs))
	seen := make(map[models.LoanKey]bool, len(subs))
	for _, e := range prior {
		sub, ok := subs[e.LoanKey]
		if !ok || seen[e.LoanKey] {
			continue
		}
		seen[e.LoanKey] = true
		next = append(next, apply(week, e, sub))
	}
	return append(next, fresh(week, subs, seen)...)
}

// merge updates submitted rows in place and keeps every other row untouched
func merge(week time.Time, prior []models.ActionEntry, subs map[models.LoanKey]models.Submission) []models.ActionEntry {
	next := make([]models.ActionEntry, 0, len(prior)+len(subs))
	seen := make(map[models.LoanKey]bool, len(subs))
	for _, e := range prior {
		if sub, ok := subs[e.LoanKey]; ok {
			seen[e.LoanKey] = true
			next = append(next, apply(week, e, sub))
			continue
		}
		next = append(next, e)
	}
	return append(next, fresh(week, subs, seen)...)
}

// apply rebuilds an entry from its key, keeping tracked metadata from the prior row
func apply(week time.Time, prior models.ActionEntry, sub models.Submission) models.ActionEntry {
	e := fromKey(week, prior.LoanKey, sub)
	e.DaysLate = prior.DaysLate
	e.Category = prior.Category
	return e
}

func fresh(week time.Time, subs map[models.LoanKey]models.Submission, seen map[models.LoanKey]bool) []models.ActionEntry {
	keys := make([]models.LoanKey, 0, len(subs))
	for key := range subs {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]models.ActionEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, fromKey(week, key, subs[key]))
	}
	return out
}

func fromKey(week time.Time, key models.LoanKey, sub models.Submission) models.ActionEntry {
	borrower, balance, _ := key.Split()
	return models.ActionEntry{
		Week:      week,
		LoanKey:   key,
		Borrower:  borrower,
		Balance:   balance,
		Contacted: sub.Contacted,
		Note:      sub.Note,
	}
}

func countKept(prior []models.ActionEntry, subs map[models.LoanKey]models.Submission) int {
	kept := 0
	for _, e := range prior {
		if _, ok := subs[e.LoanKey]; ok {
			kept++
		}
	}
	return kept
}
