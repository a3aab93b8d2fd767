package scheduler

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/acquire"
	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

// LedgerEnsurer creates the current week's ledger when it is missing
type LedgerEnsurer interface {
	EnsureCurrent(ctx context.Context, loans []models.LoanRecord) (*models.WeeklyLedger, bool, error)
}

// ReportGenerator renders the weekly reports
type ReportGenerator interface {
	TakeAction(ctx context.Context) string
	MustContact(ctx context.Context, notify bool) string
}

// RunResult lists the report files produced by a weekly run. Empty paths mark skipped reports.
type RunResult struct {
	Week            string `json:"week,omitempty"`
	LedgerCreated   bool   `json:"ledger_created"`
	TakeActionPath  string `json:"take_action_path"`
	MustContactPath string `json:"must_contact_path"`
}

// Pipeline runs the scheduled jobs
type Pipeline struct {
	acquirer acquire.Acquirer
	loans    snapshot.Source
	ledgers  LedgerEnsurer
	reports  ReportGenerator
	notify   bool
	log      *logrus.Logger
}

// NewPipeline creates a pipeline. acquirer may be nil when downloads are handled elsewhere.
func NewPipeline(acquirer acquire.Acquirer, loans snapshot.Source, ledgers LedgerEnsurer, reports ReportGenerator, notify bool, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		acquirer: acquirer,
		loans:    loans,
		ledgers:  ledgers,
		reports:  reports,
		notify:   notify,
		log:      log,
	}
}

// DailyDownload refreshes the loan snapshot
func (p *Pipeline) DailyDownload(ctx context.Context) error {
	if p.acquirer == nil {
		p.log.Debug("No snapshot acquirer configured, skipping download")
		return nil
	}
	if err := p.acquirer.Acquire(ctx); err != nil {
		p.log.WithError(err).Error("Daily snapshot download failed")
		return err
	}
	return nil
}

// WeeklyReports makes sure the current ledger exists, then renders the
// take-action and must-contact reports in that order. A failing step is
// logged and does not stop the steps after it.
func (p *Pipeline) WeeklyReports(ctx context.Context) RunResult {
	var res RunResult

	loans, err := p.loans.Loans(ctx)
	if err != nil {
		p.log.WithError(err).Warn("Loan snapshot unavailable for weekly run")
	}
	l, created, err := p.ledgers.EnsureCurrent(ctx, loans)
	if err != nil {
		p.log.WithError(err).Error("Failed to ensure current weekly ledger")
	} else {
		res.Week, res.LedgerCreated = l.WeekTag(), created
	}

	res.TakeActionPath = p.reports.TakeAction(ctx)
	res.MustContactPath = p.reports.MustContact(ctx, p.notify)

	p.log.WithFields(logrus.Fields{
		"week":         res.Week,
		"created":      res.LedgerCreated,
		"take_action":  res.TakeActionPath,
		"must_contact": res.MustContactPath,
	}).Info("Weekly reports finished")
	return res
}
