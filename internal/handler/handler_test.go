package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/loan-xtrack/internal/config"
	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/middleware"
	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/recorder"
	"github.com/Dan9191/loan-xtrack/internal/report"
	"github.com/Dan9191/loan-xtrack/internal/service"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

const snapshotCSV = `Borrower,Principal Balance,Days Late,Group,Contract,Guarantor,Title Ownership,Status
Ann,1500,25,Active,Yes,,own,
Bo,800,30,Active,No,,,
Cy,950.50,40,Inactive,yes,,,
Dee,1200,29,Active,Yes,Mom,,
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := t.TempDir()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:            "secret",
		TokenTTL:             time.Hour,
		OperatorUsername:     "operator",
		OperatorPasswordHash: string(hash),
	}

	snapshotPath := filepath.Join(dir, "latest_loans.csv")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(snapshotCSV), 0o644))
	loans := snapshot.NewFileSource(snapshotPath, log)

	backend, err := ledger.NewFileBackend(filepath.Join(dir, "weekly_actions"), log)
	require.NoError(t, err)
	store := ledger.NewStore(backend, time.UTC, log)
	store.SetClock(func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) })

	gen := report.NewGenerator(store, loans, report.NewHTMLRenderer(filepath.Join(dir, "reports"), log), nil,
		config.DefaultEscalationNote, report.SplitPosition, log)
	svc := service.NewService(store, recorder.NewRecorder(store, recorder.ModeReplace, log), loans, gen, log, cfg)

	srv := httptest.NewServer(NewRouter(NewHandler(svc, log), middleware.AuthMiddleware(cfg)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/login", "", models.LoginRequest{Username: "operator", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.LoginResponse
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newServer(t)
	resp := do(t, srv, http.MethodPost, "/login", "", models.LoginRequest{Username: "operator", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newServer(t)
	for _, path := range []string{"/actions/current", "/actions/history", "/loans", "/loans/summary", "/reports/take-action", "/reports/must-contact"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, path, "", nil).StatusCode, path)
	}
}

func TestWeeklyWorkflow(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodGet, "/reports/take-action", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/actions/current", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sheet models.ActionSheet
	decode(t, resp, &sheet)
	require.Equal(t, "2026-10-16", sheet.Week)
	require.Len(t, sheet.Entries, 4)

	var items []models.SubmissionItem
	for i, e := range sheet.Entries {
		items = append(items, models.SubmissionItem{
			LoanKey:   e.LoanKey,
			Contacted: i%2 == 0,
			Note:      config.DefaultEscalationNote,
		})
	}
	resp = do(t, srv, http.MethodPost, "/actions/"+sheet.Week, token, models.RecordRequest{Version: sheet.Version, Entries: items})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/actions/"+sheet.Week, token, models.RecordRequest{Version: sheet.Version, Entries: items})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/reports/take-action", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ta models.TakeActionReport
	decode(t, resp, &ta)
	assert.Equal(t, 4, ta.Total)
	assert.Equal(t, "50%", ta.ContactedPct)
	assert.Equal(t, "50%", ta.NotContactedPct)

	resp = do(t, srv, http.MethodGet, "/reports/must-contact", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mc models.MustContactReport
	decode(t, resp, &mc)
	assert.Len(t, mc.Critical.Rows, 2)
	assert.Len(t, mc.HighRisk.Rows, 2)
	assert.Equal(t, 40, mc.Critical.Rows[0].DaysLate)

	resp = do(t, srv, http.MethodGet, "/actions/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []models.ActionEntry
	decode(t, resp, &history)
	assert.Len(t, history, 4)
}

func TestRecordErrors(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	tests := []struct {
		path   string
		body   interface{}
		status int
	}{
		{"/actions/2026-10-15", models.RecordRequest{}, http.StatusBadRequest},
		{"/actions/2026-10-09", models.RecordRequest{}, http.StatusConflict},
		{"/actions/2026-10-16", models.RecordRequest{Entries: []models.SubmissionItem{{LoanKey: "no-separator"}}}, http.StatusBadRequest},
		{"/actions/2026-10-16", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.path, tt.status), func(t *testing.T) {
			assert.Equal(t, tt.status, do(t, srv, http.MethodPost, tt.path, token, tt.body).StatusCode)
		})
	}
}

func TestLoansEndpoints(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodGet, "/loans?tier=High%20Risk", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loans []models.LoanRecord
	decode(t, resp, &loans)
	assert.Len(t, loans, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/loans?tier=doomed", token, nil).StatusCode)

	resp = do(t, srv, http.MethodGet, "/loans/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary models.LoanSummary
	decode(t, resp, &summary)
	assert.Equal(t, 4, summary.TotalLoans)
	assert.Equal(t, 1, summary.MissingContract)
}
