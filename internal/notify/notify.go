package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/config"
	"github.com/Dan9191/loan-xtrack/internal/integrations/telegram"
)

// Notifier delivers a rendered report file
type Notifier interface {
	Send(ctx context.Context, path, subject string) error
}

// Dispatcher fans a report out to every configured notifier
type Dispatcher struct {
	notifiers []Notifier
	log       *logrus.Logger
}

// NewDispatcher creates a dispatcher over notifiers
func NewDispatcher(log *logrus.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, log: log}
}

// NewDispatcherFromConfig wires the notifiers enabled in cfg
func NewDispatcherFromConfig(cfg *config.Config, log *logrus.Logger) *Dispatcher {
	var notifiers []Notifier
	if cfg.EmailEnabled {
		notifiers = append(notifiers, NewEmailNotifier(cfg, log))
	}
	if cfg.TelegramEnabled {
		client := telegram.NewClient(cfg.TelegramURL, cfg.TelegramBotToken, log)
		notifiers = append(notifiers, NewTelegramNotifier(client, cfg.TelegramChatID))
	}
	return NewDispatcher(log, notifiers...)
}

// Len returns the number of configured notifiers
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Deliver sends the file through every notifier. Failures are logged and never
// returned, so a broken channel cannot fail report generation.
func (d *Dispatcher) Deliver(ctx context.Context, path, subject string) {
	if len(d.notifiers) == 0 {
		d.log.WithField("path", path).Debug("No notifiers configured")
		return
	}
	for _, n := range d.notifiers {
		logger := d.log.WithFields(logrus.Fields{
			"notifier": fmt.Sprintf("%T", n),
			"path":     path,
		})
		if err := n.Send(ctx, path, subject); err != nil {
			logger.WithError(err).Error("Failed to deliver report")
			continue
		}
		logger.Info("Report delivered")
	}
}

// TelegramNotifier posts reports as documents to a Telegram chat
type TelegramNotifier struct {
	client *telegram.Client
	chatID string
}

// NewTelegramNotifier creates a notifier posting to chatID
func NewTelegramNotifier(client *telegram.Client, chatID string) *TelegramNotifier {
	return &TelegramNotifier{client: client, chatID: chatID}
}

// Send uploads the report with subject as its caption
func (t *TelegramNotifier) Send(ctx context.Context, path, subject string) error {
	if err := t.client.SendDocument(ctx, t.chatID, path, subject); err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	return nil
}
