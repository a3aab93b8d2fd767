package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/loan-xtrack/internal/config"
	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/recorder"
	"github.com/Dan9191/loan-xtrack/internal/report"
	"github.com/Dan9191/loan-xtrack/internal/risk"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

var (
	// ErrInvalidCredentials is returned when login fails
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRequest is returned for malformed input
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoReport is returned when there is no data for a report
	ErrNoReport = errors.New("nothing to report")
)

// Service handles business logic
type Service struct {
	store    *ledger.Store
	recorder *recorder.Recorder
	loans    snapshot.Source
	reports  *report.Generator
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time
}

// NewService initializes a new service
func NewService(store *ledger.Store, rec *recorder.Recorder, loans snapshot.Source, reports *report.Generator, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		recorder: rec,
		loans:    loans,
		reports:  reports,
		log:      log,
		config:   cfg,
		now:      time.Now,
	}
}

// Login authenticates the operator and returns a JWT token
func (s *Service) Login(username, password string) (string, error) {
	if s.config.OperatorPasswordHash == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(s.config.OperatorUsername)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.OperatorPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Operator logged in: %s", username)
	return tokenString, nil
}

// CurrentActions makes sure this week's ledger exists and returns it with
// advisory notes carried from unresolved entries of earlier weeks
func (s *Service) CurrentActions(ctx context.Context) (*models.ActionSheet, error) {
	loans, loadErr := s.loans.Loans(ctx)
	if loadErr != nil {
		s.log.WithError(loadErr).Warn("Loan snapshot unavailable, only an existing ledger can be shown")
	}

	l, _, err := s.store.EnsureCurrent(ctx, loans)
	if errors.Is(err, ledger.ErrEmptySnapshot) && loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		return nil, err
	}

	views, err := s.store.Prefill(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("failed to prefill actions: %w", err)
	}
	return &models.ActionSheet{Week: l.WeekTag(), Version: l.Version, Entries: views}, nil
}

// RecordActions applies a submitted form to the ledger of weekTag
func (s *Service) RecordActions(ctx context.Context, weekTag string, req models.RecordRequest) (*models.WeeklyLedger, error) {
	week, err := ledger.ParseWeekTag(weekTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.recorder.Record(ctx, week, req.Submissions(), req.Version)
}

// History returns every recorded entry across all weeks, oldest week first
func (s *Service) History(ctx context.Context) ([]models.ActionEntry, error) {
	entries, err := s.store.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if entries == nil {
		entries = []models.ActionEntry{}
	}
	return entries, nil
}

// Loans returns the classified snapshot, optionally restricted to one tier
func (s *Service) Loans(ctx context.Context, tier string) ([]models.LoanRecord, error) {
	loans, err := s.loans.Loans(ctx)
	if err != nil {
		return nil, err
	}
	if tier == "" {
		return loans, nil
	}
	t, err := models.ParseRiskTier(tier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	filtered := risk.FilterByTier(loans, t)
	if filtered == nil {
		filtered = []models.LoanRecord{}
	}
	return filtered, nil
}

// LoanSummary returns dashboard statistics for the snapshot
func (s *Service) LoanSummary(ctx context.Context) (models.LoanSummary, error) {
	loans, err := s.loans.Loans(ctx)
	if err != nil {
		return models.LoanSummary{}, err
	}
	return risk.Summarize(loans), nil
}

// TakeActionReport aggregates the latest ledger into the operational report
func (s *Service) TakeActionReport(ctx context.Context) (*models.TakeActionReport, error) {
	r := s.reports.TakeActionData(ctx)
	if r == nil {
		return nil, ErrNoReport
	}
	return r, nil
}

// MustContactReport lists the loans escalated for executive contact
func (s *Service) MustContactReport(ctx context.Context) (*models.MustContactReport, error) {
	r := s.reports.MustContactData(ctx)
	if r == nil {
		return nil, ErrNoReport
	}
	return r, nil
}
