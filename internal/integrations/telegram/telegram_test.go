package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CEO_MustContact_2026-10-16.html")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))
	return path
}

func TestSendDocument(t *testing.T) {
	var gotChat, gotCaption, gotName, gotBody, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotChat = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		f, hdr, err := r.FormFile("document")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		b, _ := io.ReadAll(f)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "TOKEN", quietLogger())
	err := c.SendDocument(context.Background(), "42", writeDocument(t), "weekly")
	require.NoError(t, err)

	assert.Equal(t, "/botTOKEN/sendDocument", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "weekly", gotCaption)
	assert.Equal(t, "CEO_MustContact_2026-10-16.html", gotName)
	assert.Equal(t, "<html></html>", gotBody)
}

func TestSendDocumentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "TOKEN", quietLogger()).SendDocument(context.Background(), "42", writeDocument(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendDocumentMissingFile(t *testing.T) {
	err := NewClient("http://127.0.0.1:0", "TOKEN", quietLogger()).SendDocument(context.Background(), "42", "/nonexistent/file.html", "")
	assert.Error(t, err)
}

func TestSendDocumentTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := NewClient(addr, "SECRET-BOT-TOKEN", quietLogger()).SendDocument(context.Background(), "42", writeDocument(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
	assert.NotContains(t, err.Error(), "SECRET-BOT-TOKEN")
}
