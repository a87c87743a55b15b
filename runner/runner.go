// Package runner holds the shared configuration and run mode selection for
// the warranty reminder binary.
package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mastermindankur/warrantywallet/tlmt"
	"github.com/mastermindankur/warrantywallet/tlmt/gonoop"
	"github.com/mastermindankur/warrantywallet/tlmt/goposthog"
)

const (
	RunModeOnce = iota + 1
	RunModeRedis
	RunModeAwsLambda
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
)

// Runner is a single run mode of the binary.
type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	Concurrency       int
	Dsn               string
	DatabasePath      string
	RunMigrations     bool
	ResendAPIKey      string
	FromEmail         string
	AppURL            string
	OverrideRecipient string
	HorizonDays       int
	CallTimeout       time.Duration
	CronSpec          string
	RedisRunner       bool
	AwsLambdaRunner   bool
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	Debug             bool
	DisableTelemetry  bool
	RunMode           int
}

func ParseConfig() *Config {
	cfg := Config{}

	flag.IntVar(&cfg.Concurrency, "c", max(runtime.NumCPU()/2, 1), "sets the number of owners processed concurrently")
	flag.StringVar(&cfg.Dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string [default: $DATABASE_URL]")
	flag.StringVar(&cfg.DatabasePath, "db-path", "warrantywallet.db", "path to the local sqlite database, used when no dsn is set")
	flag.BoolVar(&cfg.RunMigrations, "migrate", false, "run database migrations before starting (requires dsn)")
	flag.StringVar(&cfg.ResendAPIKey, "resend-key", os.Getenv("RESEND_API_KEY"), "Resend API key [default: $RESEND_API_KEY]")
	flag.StringVar(&cfg.FromEmail, "from", envOrDefault("FROM_EMAIL", "WarrantyWallet <alerts@warrantywallet.online>"), "sender address for reminder emails [default: $FROM_EMAIL]")
	flag.StringVar(&cfg.AppURL, "app-url", os.Getenv("APP_URL"), "base URL used for dashboard links in emails [default: $APP_URL]")
	flag.StringVar(&cfg.OverrideRecipient, "override-to", os.Getenv("REMINDER_OVERRIDE_TO"), "redirect every reminder email to this address [default: $REMINDER_OVERRIDE_TO]")
	flag.IntVar(&cfg.HorizonDays, "horizon", 30, "number of days ahead to look for expiring warranties")
	flag.DurationVar(&cfg.CallTimeout, "call-timeout", 30*time.Second, "timeout for each store and provider call")
	flag.StringVar(&cfg.CronSpec, "cron", "0 9 * * *", "cron spec for the daily reminder run (UTC), used with -redis")
	flag.BoolVar(&cfg.RedisRunner, "redis", false, "run as a Redis-backed worker with a daily schedule")
	flag.BoolVar(&cfg.AwsLambdaRunner, "aws-lambda", false, "run as an AWS Lambda function")
	flag.StringVar(&cfg.SMTPHost, "smtp-host", os.Getenv("SMTP_HOST"), "SMTP host, used instead of Resend when set [default: $SMTP_HOST]")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", 465, "SMTP port")
	flag.StringVar(&cfg.SMTPUsername, "smtp-user", os.Getenv("SMTP_USERNAME"), "SMTP username [default: $SMTP_USERNAME]")
	flag.StringVar(&cfg.SMTPPassword, "smtp-pass", os.Getenv("SMTP_PASSWORD"), "SMTP password [default: $SMTP_PASSWORD]")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")

	flag.Parse()

	cfg.DisableTelemetry = os.Getenv("DISABLE_TELEMETRY") == "1"

	if cfg.Concurrency < 1 {
		panic("Concurrency must be greater than 0")
	}

	if cfg.HorizonDays < 1 {
		panic("Horizon must be at least 1 day")
	}

	if cfg.RunMigrations && cfg.Dsn == "" {
		panic("Dsn must be provided when using migrate")
	}

	switch {
	case cfg.AwsLambdaRunner:
		cfg.RunMode = RunModeAwsLambda
	case cfg.RedisRunner:
		cfg.RunMode = RunModeRedis
	default:
		cfg.RunMode = RunModeOnce
	}

	return &cfg
}

// NewLogger builds the process logger. Debug mode switches to the human
// readable development encoder.
func NewLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}

		return logger
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry returns the process-wide telemetry client, initialised on first
// use. It reports noop when telemetry is disabled or no API key is set.
func (c *Config) Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		if c.DisableTelemetry {
			telemetry = gonoop.New()

			return
		}

		apiKey := os.Getenv("POSTHOG_API_KEY")
		if apiKey == "" {
			telemetry = gonoop.New()

			return
		}

		val, err := goposthog.New(apiKey, envOrDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com"))
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// wrapText breaks text into lines of at most width display cells, counting
// wide runes (emoji, CJK) as two cells.
func wrapText(text string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		used  int
	)

	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if used+w > width {
			lines = append(lines, line.String())
			line.Reset()
			used = 0
		}

		line.WriteRune(r)
		used += w
	}

	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		if w, _, err := term.GetSize(0); err == nil {
			width = w
		} else {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	inner := width - 4

	var b strings.Builder

	b.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, message := range messages {
		for _, line := range wrapText(message, inner) {
			b.WriteString("║ " + runewidth.FillRight(line, inner) + " ║\n")
		}
	}

	b.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return b.String()
}

func Banner() {
	message1 := "📄 WarrantyWallet Reminder Service"
	message2 := "🔔 Sends warranty expiry reminders for https://warrantywallet.online"

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2}, 0))
}
