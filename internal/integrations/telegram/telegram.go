package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client handles integration with the Telegram Bot API
type Client struct {
	url    string
	token  string
	client *http.Client
	log    *logrus.Logger
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewClient initializes a new Telegram client against baseURL
func NewClient(baseURL, token string, log *logrus.Logger) *Client {
	return &Client{
		url:   strings.TrimRight(baseURL, "/"),
		token: token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// buildDocumentRequest creates a multipart sendDocument body for the file at path
func (c *Client) buildDocumentRequest(chatID, path, caption string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("chat_id", chatID); err != nil {
		return nil, "", fmt.Errorf("failed to write chat_id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return nil, "", fmt.Errorf("failed to write caption: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy document: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// SendDocument uploads the file at path to chatID
func (c *Client) SendDocument(ctx context.Context, chatID, path, caption string) error {
	body, contentType, err := c.buildDocumentRequest(chatID, path, caption)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", c.url, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		// The request URL carries the bot token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Telegram response: %s", string(raw))

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return fmt.Errorf("telegram rejected document (status %d): %s", resp.StatusCode, parsed.Description)
	}

	c.log.Infof("Sent %s to Telegram chat %s", filepath.Base(path), chatID)
	return nil
}
