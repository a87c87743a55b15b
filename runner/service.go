package runner

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/mastermindankur/warrantywallet/composer"
	"github.com/mastermindankur/warrantywallet/mailer"
	"github.com/mastermindankur/warrantywallet/mailer/resend"
	"github.com/mastermindankur/warrantywallet/mailer/smtpmailer"
	"github.com/mastermindankur/warrantywallet/models"
	"github.com/mastermindankur/warrantywallet/postgres"
	"github.com/mastermindankur/warrantywallet/reminder"
	"github.com/mastermindankur/warrantywallet/sqlite"
)

// NewReminderService wires the reminder service from the configuration:
// storage (PostgreSQL when a dsn is set, sqlite otherwise), the email
// provider (SMTP when a host is set, Resend otherwise) and the composer.
// The returned closer releases the storage handle.
func NewReminderService(cfg *Config, logger *zap.Logger) (*reminder.Service, func() error, error) {
	mail := newMailer(cfg)

	var composeOpts []composer.Option
	if cfg.AppURL != "" {
		composeOpts = append(composeOpts, composer.WithAppURL(cfg.AppURL))
	}

	compose, err := composer.New(composeOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build composer: %w", err)
	}

	warranties, users, closer, err := newRepositories(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := reminder.New(warranties, users, mail, compose, cfg.FromEmail,
		reminder.WithHorizon(time.Duration(cfg.HorizonDays)*24*time.Hour),
		reminder.WithConcurrency(cfg.Concurrency),
		reminder.WithCallTimeout(cfg.CallTimeout),
		reminder.WithOverrideRecipient(cfg.OverrideRecipient),
		reminder.WithLogger(logger),
		reminder.WithTelemetry(cfg.Telemetry()),
	)

	return svc, closer, nil
}

func newMailer(cfg *Config) mailer.Mailer {
	if cfg.SMTPHost != "" {
		return smtpmailer.New(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUsername, cfg.SMTPPassword)
	}

	return resend.New(cfg.ResendAPIKey)
}

func newRepositories(cfg *Config) (models.WarrantyRepository, models.UserRepository, func() error, error) {
	if cfg.Dsn == "" {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open local store: %w", err)
		}

		return store, store.Users(), store.Close, nil
	}

	if cfg.RunMigrations {
		if err := postgres.NewMigrationRunner(cfg.Dsn).RunMigrations(); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := sql.Open("pgx", cfg.Dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	warranties, err := postgres.NewWarrantyRepository(db)
	if err != nil {
		return nil, nil, nil, multierr.Append(err, db.Close())
	}

	return warranties, postgres.NewUserRepository(db), db.Close, nil
}
