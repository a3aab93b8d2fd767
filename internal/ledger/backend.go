package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

var (
	// ErrNotFound is returned when no ledger exists for a week
	ErrNotFound = errors.New("ledger not found")
	// ErrVersionConflict is returned when a ledger changed since it was loaded
	ErrVersionConflict = errors.New("ledger changed since it was loaded")
	// ErrEmptySnapshot is returned when a new week cannot be seeded because the snapshot has no loans
	ErrEmptySnapshot = errors.New("loan snapshot is empty")
)

// Backend persists one ledger per week.
//
// Save writes the ledger as a complete replacement. It succeeds only when the
// stored version equals expectedVersion, where "" means the week must not exist
// yet, and returns the ledger with its new version.
type Backend interface {
	Load(ctx context.Context, week time.Time) (*models.WeeklyLedger, error)
	Save(ctx context.Context, ledger *models.WeeklyLedger, expectedVersion string) (*models.WeeklyLedger, error)
	Weeks(ctx context.Context) ([]time.Time, error)
}
