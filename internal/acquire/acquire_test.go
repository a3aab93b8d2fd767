package acquire

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-xtrack/internal/credentials"
)

type staticProvider struct {
	calls int
}

func (p *staticProvider) Credentials(context.Context) (credentials.Credentials, error) {
	p.calls++
	return credentials.Credentials{Username: "alice", Password: "pw"}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newAcquirer(t *testing.T, script string) (*CommandAcquirer, *staticProvider, string) {
	t.Helper()
	p := &staticProvider{}
	path := filepath.Join(t.TempDir(), "latest_loans.csv")
	cache := credentials.NewCache(p, time.Hour, quietLogger())
	return NewCommandAcquirer([]string{"sh", "-c", script}, cache, "XT_USER", "XT_PASS", path, quietLogger()), p, path
}

func TestAcquireWritesSnapshot(t *testing.T) {
	a, p, path := newAcquirer(t, `test "$XT_USER" = alice && test "$XT_PASS" = pw && printf 'Borrower\nAnn\n' > "$SNAPSHOT_PATH"`)

	require.NoError(t, a.Acquire(context.Background()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Borrower\nAnn\n", string(b))

	require.NoError(t, a.Acquire(context.Background()))
	assert.Equal(t, 1, p.calls)
}

func TestAcquireFailureInvalidatesCredentials(t *testing.T) {
	a, p, _ := newAcquirer(t, `echo "login rejected"; exit 3`)

	err := a.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected")

	_ = a.Acquire(context.Background())
	assert.Equal(t, 2, p.calls)
}

func TestAcquireRequiresSnapshot(t *testing.T) {
	a, _, _ := newAcquirer(t, `exit 0`)
	assert.True(t, errors.Is(a.Acquire(context.Background()), ErrNoSnapshot))
}

func TestAcquireRejectsStaleSnapshot(t *testing.T) {
	a, _, path := newAcquirer(t, `exit 0`)
	require.NoError(t, os.WriteFile(path, []byte("Borrower\nOld\n"), 0o644))

	assert.True(t, errors.Is(a.Acquire(context.Background()), ErrNoSnapshot))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Borrower\nOld\n", string(b))
	assert.NoFileExists(t, path+".prev")
}

func TestAcquireReplacesPreviousSnapshot(t *testing.T) {
	a, _, path := newAcquirer(t, `printf 'Borrower\nNew\n' > "$SNAPSHOT_PATH"`)
	require.NoError(t, os.WriteFile(path, []byte("Borrower\nOld\n"), 0o644))

	require.NoError(t, a.Acquire(context.Background()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Borrower\nNew\n", string(b))
	assert.NoFileExists(t, path+".prev")
}

func TestAcquireNotConfigured(t *testing.T) {
	a := NewCommandAcquirer(nil, nil, "", "", "", quietLogger())
	assert.True(t, errors.Is(a.Acquire(context.Background()), ErrNotConfigured))
}
