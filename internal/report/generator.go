package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

// LedgerReader gives access to the most recent weekly ledger
type LedgerReader interface {
	Latest(ctx context.Context) (*models.WeeklyLedger, error)
}

// Deliverer sends a rendered report to its recipients
type Deliverer interface {
	Deliver(ctx context.Context, path, subject string)
}

// Generator builds, renders and optionally delivers the weekly reports
type Generator struct {
	ledgers  LedgerReader
	loans    snapshot.Source
	renderer Renderer
	notifier Deliverer
	phrase   string
	split    SplitMode
	log      *logrus.Logger
}

// NewGenerator creates a report generator. notifier may be nil.
func NewGenerator(ledgers LedgerReader, loans snapshot.Source, renderer Renderer, notifier Deliverer, phrase string, split SplitMode, log *logrus.Logger) *Generator {
	return &Generator{
		ledgers:  ledgers,
		loans:    loans,
		renderer: renderer,
		notifier: notifier,
		phrase:   phrase,
		split:    split,
		log:      log,
	}
}

// TakeActionData aggregates the latest ledger. It returns nil when there is nothing to report.
func (g *Generator) TakeActionData(ctx context.Context) *models.TakeActionReport {
	l := g.latest(ctx)
	if l == nil {
		return nil
	}
	r := BuildTakeAction(l, g.split)
	if r == nil {
		g.log.WithField("week", l.WeekTag()).Info("Weekly ledger is empty, skipping take action report")
	}
	return r
}

// MustContactData selects escalated loans from the latest ledger, enriched with
// the current snapshot. It returns nil when no entry carries the escalation note.
func (g *Generator) MustContactData(ctx context.Context) *models.MustContactReport {
	l := g.latest(ctx)
	if l == nil {
		return nil
	}

	loans, err := g.loans.Loans(ctx)
	if err != nil {
		g.log.WithError(err).Warn("Loan snapshot unavailable, using ledger days late only")
		loans = nil
	}

	r := BuildMustContact(l, loans, g.phrase)
	if r == nil {
		g.log.WithFields(logrus.Fields{
			"week":          l.WeekTag(),
			"expected_note": NormalizeNote(g.phrase),
		}).Info("No entries carry the escalation note, skipping must-contact report")
	}
	return r
}

// TakeAction renders the take-action report and returns its path, or "" when skipped or failed
func (g *Generator) TakeAction(ctx context.Context) string {
	r := g.TakeActionData(ctx)
	if r == nil {
		return ""
	}
	path, err := g.renderer.RenderTakeAction(ctx, r)
	if err != nil {
		g.log.WithError(err).Error("Failed to render take action report")
		return ""
	}
	return path
}

// MustContact renders the must-contact report and returns its path, or "" when
// skipped or failed. With notify set the rendered file is handed to the notifier.
func (g *Generator) MustContact(ctx context.Context, notify bool) string {
	r := g.MustContactData(ctx)
	if r == nil {
		return ""
	}
	path, err := g.renderer.RenderMustContact(ctx, r)
	if err != nil {
		g.log.WithError(err).Error("Failed to render must-contact report")
		return ""
	}
	if notify && g.notifier != nil {
		g.notifier.Deliver(ctx, path, fmt.Sprintf("CEO Must Contact Report - %s", ledger.FormatWeekTag(r.Week)))
	}
	return path
}

func (g *Generator) latest(ctx context.Context) *models.WeeklyLedger {
	l, err := g.ledgers.Latest(ctx)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		g.log.Info("No weekly ledger found, skipping report")
		return nil
	case err != nil:
		g.log.WithError(err).Error("Failed to load latest weekly ledger")
		return nil
	}
	return l
}
