package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/models"
)

// Schema creates the ledger tables when they do not exist yet
const Schema = `
CREATE SCHEMA IF NOT EXISTS xtrack;

CREATE TABLE IF NOT EXISTS xtrack.weekly_ledgers (
	week_tag   DATE PRIMARY KEY,
	revision   BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS xtrack.action_entries (
	week_tag  DATE NOT NULL REFERENCES xtrack.weekly_ledgers (week_tag) ON DELETE CASCADE,
	position  INT NOT NULL,
	loan_key  TEXT NOT NULL,
	borrower  TEXT NOT NULL,
	balance   NUMERIC NOT NULL,
	days_late INT NOT NULL DEFAULT 0,
	category  TEXT NOT NULL DEFAULT '',
	contacted BOOLEAN NOT NULL DEFAULT FALSE,
	note      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (week_tag, position)
);`

// Repository stores weekly ledgers in PostgreSQL. The ledger version is the
// row revision, bumped on every save.
type Repository struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB, log *logrus.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// EnsureSchema creates the ledger tables
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load retrieves the ledger for a week
func (r *Repository) Load(ctx context.Context, week time.Time) (*models.WeeklyLedger, error) {
	tag := ledger.FormatWeekTag(week)

	var revision int64
	err := r.db.QueryRowContext(ctx, `
		SELECT revision
		FROM xtrack.weekly_ledgers
		WHERE week_tag = $1`, tag).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNotFound, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger %s: %w", tag, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT loan_key, borrower, balance, days_late, category, contacted, note
		FROM xtrack.action_entries
		WHERE week_tag = $1
		ORDER BY position`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", tag, err)
	}
	defer rows.Close()

	l := &models.WeeklyLedger{Week: week, Version: strconv.FormatInt(revision, 10)}
	for rows.Next() {
		e := models.ActionEntry{Week: week}
		var key, category string
		if err := rows.Scan(&key, &e.Borrower, &e.Balance, &e.DaysLate, &category, &e.Contacted, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan entry for %s: %w", tag, err)
		}
		e.LoanKey = models.LoanKey(key)
		e.Category = models.RiskTier(category)
		l.Entries = append(l.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries for %s: %w", tag, err)
	}
	return l, nil
}

// Save replaces the ledger for a week inside one transaction
func (r *Repository) Save(ctx context.Context, l *models.WeeklyLedger, expectedVersion string) (*models.WeeklyLedger, error) {
	tag := ledger.FormatWeekTag(l.Week)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, `
		SELECT revision
		FROM xtrack.weekly_ledgers
		WHERE week_tag = $1
		FOR UPDATE`, tag).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedVersion != "" {
			return nil, fmt.Errorf("%w: %s was removed", ledger.ErrVersionConflict, tag)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO xtrack.weekly_ledgers (week_tag, revision, updated_at)
			VALUES ($1, 1, CURRENT_TIMESTAMP)
			ON CONFLICT (week_tag) DO NOTHING`, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to create ledger %s: %w", tag, err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return nil, fmt.Errorf("%w: %s was created concurrently", ledger.ErrVersionConflict, tag)
		}
		current = 0
	case err != nil:
		return nil, fmt.Errorf("failed to lock ledger %s: %w", tag, err)
	default:
		if expectedVersion != strconv.FormatInt(current, 10) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrVersionConflict, tag)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE xtrack.weekly_ledgers
			SET revision = $2, updated_at = CURRENT_TIMESTAMP
			WHERE week_tag = $1`, tag, current+1); err != nil {
			return nil, fmt.Errorf("failed to update ledger %s: %w", tag, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM xtrack.action_entries WHERE week_tag = $1`, tag); err != nil {
		return nil, fmt.Errorf("failed to clear entries for %s: %w", tag, err)
	}
	for i, e := range l.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO xtrack.action_entries (week_tag, position, loan_key, borrower, balance, days_late, category, contacted, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			tag, i, string(e.LoanKey), e.Borrower, e.Balance, e.DaysLate, string(e.Category), e.Contacted, e.Note); err != nil {
			return nil, fmt.Errorf("failed to insert entry %s: %w", e.LoanKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger %s: %w", tag, err)
	}

	saved := *l
	saved.Entries = append([]models.ActionEntry(nil), l.Entries...)
	for i := range saved.Entries {
		saved.Entries[i].Week = l.Week
	}
	saved.Version = strconv.FormatInt(current+1, 10)
	r.log.WithFields(logrus.Fields{"week": tag, "revision": saved.Version, "entries": len(saved.Entries)}).Debug("Ledger saved")
	return &saved, nil
}

// Weeks lists the stored week tags in ascending order
func (r *Repository) Weeks(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT week_tag::text
		FROM xtrack.weekly_ledgers
		ORDER BY week_tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []time.Time
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		week, err := ledger.ParseWeekTag(tag)
		if err != nil {
			r.log.WithError(err).Warnf("Skipping invalid week tag %q", tag)
			continue
		}
		weeks = append(weeks, week)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	return weeks, nil
}
