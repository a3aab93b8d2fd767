package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"path/filepath"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/config"
)

// EmailNotifier sends reports as attachments via SMTP
type EmailNotifier struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.Config, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send:   (*email.Email).Send,
	}
}

// Send mails the report at path to the configured recipients
func (s *EmailNotifier) Send(ctx context.Context, path, subject string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = s.cfg.ReportRecipients
	e.Subject = subject
	e.Text = []byte(fmt.Sprintf(
		"Hello,\n\nPlease find attached %s.\n\nBest regards,\nLoan Tracker",
		filepath.Base(path),
	))
	if _, err := e.AttachFile(path); err != nil {
		return fmt.Errorf("failed to attach report: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
