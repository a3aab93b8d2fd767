package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/Dan9191/loan-xtrack/internal/recorder"
	"github.com/Dan9191/loan-xtrack/internal/report"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultEscalationNote is the dropdown phrase that marks a loan for executive follow-up
const DefaultEscalationNote = "move to BAD, needs to contacted by MIKE/SAIPI"

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	DataDir      string
	SnapshotPath string
	LedgerDir    string
	ReportsDir   string

	LedgerBackend string
	DBConn        string

	RecorderMode   string
	ReportSplit    string
	EscalationNote string

	Timezone         string
	Location         *time.Location
	DownloadSchedule string
	ReportSchedule   string
	NotifyOnReport   bool

	JWTSecret            string
	TokenTTL             time.Duration
	OperatorUsername     string
	OperatorPasswordHash string

	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SenderEmail      string
	ReportRecipients []string
	EmailEnabled     bool

	TelegramEnabled  bool
	TelegramURL      string
	TelegramBotToken string
	TelegramChatID   string

	AcquireCommand []string
	AcquireUserEnv string
	AcquirePassEnv string
	CredentialTTL  time.Duration
}

// NewConfig loads configuration from the environment, reading a .env file first when present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		DataDir:      dataDir,
		SnapshotPath: getEnv("SNAPSHOT_PATH", filepath.Join(dataDir, "latest_loans.csv")),
		LedgerDir:    getEnv("LEDGER_DIR", filepath.Join(dataDir, "weekly_actions")),
		ReportsDir:   getEnv("REPORTS_DIR", "reports"),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendFile)),
		DBConn:        getEnv("DB_CONN", ""),

		RecorderMode:   strings.ToLower(getEnv("RECORDER_MODE", string(recorder.ModeReplace))),
		ReportSplit:    strings.ToLower(getEnv("REPORT_SPLIT", string(report.SplitPosition))),
		EscalationNote: getEnv("ESCALATION_NOTE", DefaultEscalationNote),

		Timezone:         getEnv("TIMEZONE", "America/Chicago"),
		DownloadSchedule: getEnv("DOWNLOAD_SCHEDULE", "0 5 * * *"),
		ReportSchedule:   getEnv("REPORT_SCHEDULE", "5 5 * * 5"),
		NotifyOnReport:   getEnvBool("NOTIFY_ON_REPORT", false),

		JWTSecret:            getEnv("JWT_SECRET", "secret"),
		TokenTTL:             getEnvDuration("TOKEN_TTL", 24*time.Hour),
		OperatorUsername:     getEnv("OPERATOR_USERNAME", "operator"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),

		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", ""),
		ReportRecipients: getEnvList("REPORT_RECIPIENTS"),
		EmailEnabled:     getEnvBool("EMAIL_ENABLED", false),

		TelegramEnabled:  getEnvBool("TELEGRAM_ENABLED", false),
		TelegramURL:      getEnv("TELEGRAM_URL", "https://api.telegram.org"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		AcquireCommand: strings.Fields(getEnv("ACQUIRE_COMMAND", "")),
		AcquireUserEnv: getEnv("ACQUIRE_USER_ENV", "BRYT_USERNAME"),
		AcquirePassEnv: getEnv("ACQUIRE_PASS_ENV", "BRYT_PASSWORD"),
		CredentialTTL:  getEnvDuration("CREDENTIAL_TTL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and required values, resolving the timezone
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendFile:
		if c.LedgerDir == "" {
			return fmt.Errorf("LEDGER_DIR is required for the file backend")
		}
	case BackendPostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if _, err := recorder.ParseMode(c.RecorderMode); err != nil {
		return fmt.Errorf("invalid RECORDER_MODE: %w", err)
	}
	if _, err := report.ParseSplitMode(c.ReportSplit); err != nil {
		return fmt.Errorf("invalid REPORT_SPLIT: %w", err)
	}
	if strings.TrimSpace(c.EscalationNote) == "" {
		return fmt.Errorf("ESCALATION_NOTE is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	for name, spec := range map[string]string{"DOWNLOAD_SCHEDULE": c.DownloadSchedule, "REPORT_SCHEDULE": c.ReportSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	if c.EmailEnabled && (c.SenderEmail == "" || len(c.ReportRecipients) == 0) {
		return fmt.Errorf("SENDER_EMAIL and REPORT_RECIPIENTS are required when EMAIL_ENABLED is set")
	}
	if c.TelegramEnabled && (c.TelegramBotToken == "" || c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
