package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeAcquirer struct {
	err   error
	calls int
}

func (f *fakeAcquirer) Acquire(context.Context) error {
	f.calls++
	return f.err
}

type fakeLoans struct {
	loans []models.LoanRecord
	err   error
}

func (f fakeLoans) Loans(context.Context) ([]models.LoanRecord, error) {
	return f.loans, f.err
}

type fakeEnsurer struct {
	err  error
	seen []models.LoanRecord
}

func (f *fakeEnsurer) EnsureCurrent(_ context.Context, loans []models.LoanRecord) (*models.WeeklyLedger, bool, error) {
	f.seen = loans
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.WeeklyLedger{Week: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)}, true, nil
}

type fakeReports struct {
	order  []string
	notify bool
}

func (f *fakeReports) TakeAction(context.Context) string {
	f.order = append(f.order, "take-action")
	return "reports/ta.html"
}

func (f *fakeReports) MustContact(_ context.Context, notify bool) string {
	f.order = append(f.order, "must-contact")
	f.notify = notify
	return ""
}

func TestWeeklyReportsRunsStepsInOrder(t *testing.T) {
	loans := []models.LoanRecord{{Borrower: "Ann", DaysLate: 30}}
	ensurer := &fakeEnsurer{}
	reports := &fakeReports{}
	p := NewPipeline(nil, fakeLoans{loans: loans}, ensurer, reports, true, quietLogger())

	res := p.WeeklyReports(context.Background())

	assert.Equal(t, loans, ensurer.seen)
	assert.Equal(t, []string{"take-action", "must-contact"}, reports.order)
	assert.True(t, reports.notify)
	assert.Equal(t, RunResult{
		Week:           "2026-10-16",
		LedgerCreated:  true,
		TakeActionPath: "reports/ta.html",
	}, res)
}

func TestWeeklyReportsContinuesAfterEnsureFailure(t *testing.T) {
	reports := &fakeReports{}
	p := NewPipeline(nil, fakeLoans{err: errors.New("missing")}, &fakeEnsurer{err: errors.New("empty")}, reports, false, quietLogger())

	res := p.WeeklyReports(context.Background())

	assert.Equal(t, []string{"take-action", "must-contact"}, reports.order)
	assert.Empty(t, res.Week)
	assert.False(t, reports.notify)
}

func TestDailyDownload(t *testing.T) {
	a := &fakeAcquirer{err: errors.New("portal down")}
	p := NewPipeline(a, fakeLoans{}, &fakeEnsurer{}, &fakeReports{}, false, quietLogger())
	assert.Error(t, p.DailyDownload(context.Background()))
	assert.Equal(t, 1, a.calls)

	assert.NoError(t, NewPipeline(nil, fakeLoans{}, &fakeEnsurer{}, &fakeReports{}, false, quietLogger()).DailyDownload(context.Background()))
}

func TestSchedulerRegistersJobs(t *testing.T) {
	p := NewPipeline(nil, fakeLoans{}, &fakeEnsurer{}, &fakeReports{}, false, quietLogger())

	s, err := New(p, "0 5 * * *", "5 5 * * 5", time.UTC, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	<-s.Stop().Done()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	p := NewPipeline(nil, fakeLoans{}, &fakeEnsurer{}, &fakeReports{}, false, quietLogger())
	_, err := New(p, "not a cron", "5 5 * * 5", time.UTC, quietLogger())
	assert.Error(t, err)
}
