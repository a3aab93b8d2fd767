package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/acquire"
	"github.com/Dan9191/loan-xtrack/internal/config"
	"github.com/Dan9191/loan-xtrack/internal/credentials"
	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/notify"
	"github.com/Dan9191/loan-xtrack/internal/recorder"
	"github.com/Dan9191/loan-xtrack/internal/report"
	"github.com/Dan9191/loan-xtrack/internal/repository"
	"github.com/Dan9191/loan-xtrack/internal/scheduler"
	"github.com/Dan9191/loan-xtrack/internal/service"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Store    *ledger.Store
	Recorder *recorder.Recorder
	Loans    *snapshot.FileSource
	Reports  *report.Generator
	Notifier *notify.Dispatcher
	Pipeline *scheduler.Pipeline
	Service  *service.Service

	db *sql.DB
}

// NewLogger creates the JSON logger at the given level, defaulting to info
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// New wires every component from cfg
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	backend, err := a.backend(ctx)
	if err != nil {
		return nil, err
	}

	recorderMode, err := recorder.ParseMode(cfg.RecorderMode)
	if err != nil {
		return nil, err
	}
	split, err := report.ParseSplitMode(cfg.ReportSplit)
	if err != nil {
		return nil, err
	}

	a.Store = ledger.NewStore(backend, cfg.Location, log)
	a.Recorder = recorder.NewRecorder(a.Store, recorderMode, log)
	a.Loans = snapshot.NewFileSource(cfg.SnapshotPath, log)
	a.Notifier = notify.NewDispatcherFromConfig(cfg, log)
	a.Reports = report.NewGenerator(a.Store, a.Loans, report.NewHTMLRenderer(cfg.ReportsDir, log), a.Notifier,
		cfg.EscalationNote, split, log)

	var acq acquire.Acquirer
	if len(cfg.AcquireCommand) > 0 {
		creds := credentials.NewCache(credentials.EnvProvider{UserKey: cfg.AcquireUserEnv, PassKey: cfg.AcquirePassEnv}, cfg.CredentialTTL, log)
		acq = acquire.NewCommandAcquirer(cfg.AcquireCommand, creds, cfg.AcquireUserEnv, cfg.AcquirePassEnv, cfg.SnapshotPath, log)
	}
	a.Pipeline = scheduler.NewPipeline(acq, a.Loans, a.Store, a.Reports, cfg.NotifyOnReport, log)
	a.Service = service.NewService(a.Store, a.Recorder, a.Loans, a.Reports, log, cfg)

	log.WithFields(logrus.Fields{
		"backend":   cfg.LedgerBackend,
		"recorder":  recorderMode,
		"split":     split,
		"timezone":  cfg.Timezone,
		"notifiers": a.Notifier.Len(),
	}).Info("Application wired")
	return a, nil
}

func (a *App) backend(ctx context.Context) (ledger.Backend, error) {
	if a.Config.LedgerBackend != config.BackendPostgres {
		if err := os.MkdirAll(a.Config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return ledger.NewFileBackend(a.Config.LedgerDir, a.Log)
	}

	db, err := sql.Open("postgres", a.Config.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	repo := repository.NewRepository(db, a.Log)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return repo, nil
}

// Close releases the database connection when one is open
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
