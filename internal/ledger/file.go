package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

const (
	fileExt        = ".json"
	lockExt        = ".lock"
	lockRetryDelay = 25 * time.Millisecond
)

// FileBackend keeps one JSON file per week, named by its week tag
type FileBackend struct {
	dir         string
	lockTimeout time.Duration
	log         *logrus.Logger
}

// NewFileBackend creates the ledger directory if needed
func NewFileBackend(dir string, log *logrus.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger dir: %w", err)
	}
	return &FileBackend{dir: dir, lockTimeout: 5 * time.Second, log: log}, nil
}

// Dir returns the ledger directory
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(week time.Time) string {
	return filepath.Join(b.dir, FormatWeekTag(week)+fileExt)
}

// Load reads the ledger for a week
func (b *FileBackend) Load(ctx context.Context, week time.Time) (*models.WeeklyLedger, error) {
	data, err := os.ReadFile(b.path(week))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, FormatWeekTag(week))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return decodeLedger(week, data)
}

// Save replaces the week's file under an advisory lock, writing to a temp file
// and renaming it into place.
func (b *FileBackend) Save(ctx context.Context, l *models.WeeklyLedger, expectedVersion string) (*models.WeeklyLedger, error) {
	unlock, err := b.lock(ctx, l.Week)
	if err != nil {
		return nil, err
	}
	defer unlock()

	path := b.path(l.Week)
	current := ""
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		current = digest(existing)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if current != expectedVersion {
		return nil, fmt.Errorf("%w: %s", ErrVersionConflict, FormatWeekTag(l.Week))
	}

	data, err := encodeLedger(l)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(b.dir, path, data); err != nil {
		return nil, err
	}

	saved := *l
	saved.Entries = append([]models.ActionEntry(nil), l.Entries...)
	saved.Version = digest(data)
	b.log.WithFields(logrus.Fields{"week": FormatWeekTag(l.Week), "entries": len(l.Entries)}).Debug("Ledger file written")
	return &saved, nil
}

// Weeks lists the week tags that have a ledger file, oldest first
func (b *FileBackend) Weeks(ctx context.Context) ([]time.Time, error) {
	items, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger dir: %w", err)
	}
	var weeks []time.Time
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		week, err := ParseWeekTag(strings.TrimSuffix(name, fileExt))
		if err != nil {
			b.log.WithField("file", name).Warn("Ignoring file with invalid week tag in ledger dir")
			continue
		}
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	return weeks, nil
}

func (b *FileBackend) lock(ctx context.Context, week time.Time) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, b.lockTimeout)
	defer cancel()

	fl := flock.New(b.path(week) + lockExt)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger %s: %w", FormatWeekTag(week), err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to lock ledger %s: lock is held", FormatWeekTag(week))
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			b.log.WithField("week", FormatWeekTag(week)).Warnf("Failed to release ledger lock: %v", err)
		}
	}, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
