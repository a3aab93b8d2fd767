package acquire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/credentials"
)

var (
	// ErrNotConfigured is returned when no export command is set
	ErrNotConfigured = errors.New("snapshot acquisition command is not configured")
	// ErrNoSnapshot is returned when the export finished without producing a snapshot
	ErrNoSnapshot = errors.New("export produced no snapshot")
)

// Acquirer refreshes the loan snapshot from the loan management system
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// CommandAcquirer runs an external export command. The command receives the
// credentials in UserEnv and PassEnv and the target file in SNAPSHOT_PATH.
type CommandAcquirer struct {
	command      []string
	creds        *credentials.Cache
	userEnv      string
	passEnv      string
	snapshotPath string
	log          *logrus.Logger
}

// NewCommandAcquirer creates an acquirer for command writing to snapshotPath
func NewCommandAcquirer(command []string, creds *credentials.Cache, userEnv, passEnv, snapshotPath string, log *logrus.Logger) *CommandAcquirer {
	return &CommandAcquirer{
		command:      command,
		creds:        creds,
		userEnv:      userEnv,
		passEnv:      passEnv,
		snapshotPath: snapshotPath,
		log:          log,
	}
}

// Acquire runs the export. Any failure invalidates the cached credentials.
func (a *CommandAcquirer) Acquire(ctx context.Context) error {
	if len(a.command) == 0 {
		return ErrNotConfigured
	}

	creds, err := a.creds.Get(ctx)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	cmd.Env = append(os.Environ(),
		a.userEnv+"="+creds.Username,
		a.passEnv+"="+creds.Password,
		"SNAPSHOT_PATH="+a.snapshotPath,
	)

	previous, err := a.setAside()
	if err != nil {
		return err
	}

	a.log.WithField("command", a.command[0]).Info("Starting loan snapshot export")
	out, err := cmd.CombinedOutput()
	if err != nil {
		a.creds.Invalidate()
		a.restore(previous)
		return fmt.Errorf("export command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(a.snapshotPath)
	if err != nil || info.Size() == 0 {
		a.creds.Invalidate()
		a.restore(previous)
		return fmt.Errorf("%w at %s", ErrNoSnapshot, a.snapshotPath)
	}
	if previous != "" {
		if err := os.Remove(previous); err != nil {
			a.log.WithError(err).Warn("Failed to remove previous snapshot")
		}
	}

	a.log.WithFields(logrus.Fields{
		"path":  a.snapshotPath,
		"bytes": info.Size(),
	}).Info("Loan snapshot downloaded")
	return nil
}

// setAside moves an existing snapshot out of the way so a run that writes
// nothing cannot pass off the old file as fresh. It returns the new location,
// or "" when there was no snapshot.
func (a *CommandAcquirer) setAside() (string, error) {
	previous := a.snapshotPath + ".prev"
	err := os.Rename(a.snapshotPath, previous)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to move previous snapshot: %w", err)
	}
	return previous, nil
}

// restore puts the previous snapshot back after a failed run
func (a *CommandAcquirer) restore(previous string) {
	if previous == "" {
		return
	}
	if err := os.Rename(previous, a.snapshotPath); err != nil {
		a.log.WithError(err).Error("Failed to restore previous snapshot")
	}
}
