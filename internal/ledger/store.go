package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/risk"
)

// Store owns the weekly ledgers. The entry set of a week is fixed when the
// week is first seeded; later writes come from the action recorder only.
type Store struct {
	backend Backend
	loc     *time.Location
	now     func() time.Time
	log     *logrus.Logger
}

// NewStore creates a store computing week tags in loc
func NewStore(backend Backend, loc *time.Location, log *logrus.Logger) *Store {
	return &Store{backend: backend, loc: loc, now: time.Now, log: log}
}

// SetClock replaces the time source used to find the current week
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Location returns the zone week tags are computed in
func (s *Store) Location() *time.Location {
	return s.loc
}

// WeekTagFor returns the week tag covering t
func (s *Store) WeekTagFor(t time.Time) time.Time {
	return WeekTagFor(t, s.loc)
}

// CurrentWeek returns the week tag for today
func (s *Store) CurrentWeek() time.Time {
	return s.WeekTagFor(s.now())
}

// Load returns the ledger for a week or ErrNotFound
func (s *Store) Load(ctx context.Context, week time.Time) (*models.WeeklyLedger, error) {
	return s.backend.Load(ctx, week)
}

// Save writes a complete replacement of a week's ledger
func (s *Store) Save(ctx context.Context, l *models.WeeklyLedger, expectedVersion string) (*models.WeeklyLedger, error) {
	return s.backend.Save(ctx, l, expectedVersion)
}

// Weeks lists every week with a ledger, oldest first
func (s *Store) Weeks(ctx context.Context) ([]time.Time, error) {
	return s.backend.Weeks(ctx)
}

// Latest returns the ledger with the newest week tag
func (s *Store) Latest(ctx context.Context) (*models.WeeklyLedger, error) {
	weeks, err := s.backend.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	if len(weeks) == 0 {
		return nil, fmt.Errorf("%w: no weekly ledgers", ErrNotFound)
	}
	return s.backend.Load(ctx, weeks[len(weeks)-1])
}

// EnsureCurrent returns this week's ledger, seeding it from loans when it does
// not exist yet. An existing ledger is never regenerated. The boolean reports
// whether a new ledger was written.
func (s *Store) EnsureCurrent(ctx context.Context, loans []models.LoanRecord) (*models.WeeklyLedger, bool, error) {
	week := s.CurrentWeek()
	logger := s.log.WithField("week", FormatWeekTag(week))

	existing, err := s.backend.Load(ctx, week)
	if err == nil {
		logger.Info("Weekly ledger already exists; leaving as-is")
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if len(loans) == 0 {
		return nil, false, ErrEmptySnapshot
	}

	fresh := &models.WeeklyLedger{Week: week, Entries: BuildEntries(week, loans)}
	saved, err := s.backend.Save(ctx, fresh, "")
	if errors.Is(err, ErrVersionConflict) {
		logger.Info("Weekly ledger was created concurrently; using the stored one")
		existing, err := s.backend.Load(ctx, week)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create weekly ledger: %w", err)
	}
	logger.WithField("entries", len(saved.Entries)).Info("Weekly ledger created")
	return saved, true, nil
}

// BuildEntries selects the loans needing follow-up: every High Risk entry
// first, then every Critical entry, each in snapshot order. The positional
// report split depends on this order.
func BuildEntries(week time.Time, loans []models.LoanRecord) []models.ActionEntry {
	var high, critical []models.ActionEntry
	for _, loan := range loans {
		switch {
		case risk.IsCritical(loan.DaysLate, loan.HasTitle, loan.HasGuarantor):
			critical = append(critical, newEntry(week, loan, models.TierCritical))
		case risk.IsHighRisk(loan.DaysLate, loan.HasTitle, loan.HasGuarantor):
			high = append(high, newEntry(week, loan, models.TierHighRisk))
		}
	}
	return append(append(make([]models.ActionEntry, 0, len(high)+len(critical)), high...), critical...)
}

func newEntry(week time.Time, loan models.LoanRecord, tier models.RiskTier) models.ActionEntry {
	return models.ActionEntry{
		Week:     week,
		LoanKey:  loan.Key(),
		Borrower: loan.Borrower,
		Balance:  loan.PrincipalBalance,
		DaysLate: loan.DaysLate,
		Category: tier,
	}
}

// CarryForward collects the unresolved entries of every week other than
// current, oldest week first. It never modifies past ledgers.
func (s *Store) CarryForward(ctx context.Context, current time.Time) ([]models.ActionEntry, error) {
	var carried []models.ActionEntry
	err := s.eachLedger(ctx, func(l *models.WeeklyLedger) {
		if l.Week.Equal(current) {
			return
		}
		for _, e := range l.Entries {
			if !e.Resolved() {
				carried = append(carried, e)
			}
		}
	})
	return carried, err
}

// History returns every entry of every week, oldest week first
func (s *Store) History(ctx context.Context) ([]models.ActionEntry, error) {
	var all []models.ActionEntry
	err := s.eachLedger(ctx, func(l *models.WeeklyLedger) {
		all = append(all, l.Entries...)
	})
	return all, err
}

// Prefill annotates untouched entries of l with the most recent carried-forward
// state for the same loan. The result is advisory and is not persisted.
func (s *Store) Prefill(ctx context.Context, l *models.WeeklyLedger) ([]models.ActionView, error) {
	carried, err := s.CarryForward(ctx, l.Week)
	if err != nil {
		return nil, err
	}
	latest := make(map[models.LoanKey]models.ActionEntry, len(carried))
	for _, e := range carried {
		if e.Week.After(l.Week) {
			continue
		}
		latest[e.LoanKey] = e
	}

	views := make([]models.ActionView, 0, len(l.Entries))
	for _, e := range l.Entries {
		view := models.ActionView{ActionEntry: e}
		if match, ok := latest[e.LoanKey]; ok && e.Untouched() {
			week := match.Week
			view.Note = match.Note
			view.Contacted = match.Contacted
			view.CarriedFrom = &week
		}
		views = append(views, view)
	}
	return views, nil
}

// eachLedger visits every readable ledger in week order. Unreadable ledgers
// are logged and skipped.
func (s *Store) eachLedger(ctx context.Context, fn func(*models.WeeklyLedger)) error {
	weeks, err := s.backend.Weeks(ctx)
	if err != nil {
		return err
	}
	for _, week := range weeks {
		l, err := s.backend.Load(ctx, week)
		if err != nil {
			s.log.WithField("week", FormatWeekTag(week)).Errorf("Skipping unreadable ledger: %v", err)
			continue
		}
		fn(l)
	}
	return nil
}
