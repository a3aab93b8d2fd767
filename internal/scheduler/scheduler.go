package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler triggers the pipeline jobs on cron schedules
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New registers the daily download and weekly report jobs in loc
func New(p *Pipeline, downloadSpec, reportSpec string, loc *time.Location, log *logrus.Logger) (*Scheduler, error) {
	logger := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(downloadSpec, func() {
		_ = p.DailyDownload(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule daily download: %w", err)
	}
	if _, err := c.AddFunc(reportSpec, func() {
		p.WeeklyReports(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule weekly reports: %w", err)
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.WithField("next", e.Next).Infof("Scheduled job %d", e.ID)
	}
}

// Stop halts the scheduler and returns a context that is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
