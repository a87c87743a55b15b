// Package reminder implements the scheduled warranty-expiry notification job.
//
// One Run fetches every warranty whose expiry date falls within the look-ahead
// horizon (including records already expired), groups records per owner,
// composes one summary email per owner and dispatches it. A single owner's
// failure (missing email, provider rejection, timeout) is contained and
// recorded; it never aborts the batch. Only a missing provider configuration
// aborts the whole run.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcnijman/go-emailaddress"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mastermindankur/warrantywallet/composer"
	"github.com/mastermindankur/warrantywallet/grouper"
	"github.com/mastermindankur/warrantywallet/mailer"
	"github.com/mastermindankur/warrantywallet/models"
	"github.com/mastermindankur/warrantywallet/tlmt"
	"github.com/mastermindankur/warrantywallet/tlmt/gonoop"
)

// ErrNoRecipient marks an owner whose account carries no notification address.
var ErrNoRecipient = errors.New("owner has no notification address")

const (
	defaultHorizon     = 30 * 24 * time.Hour
	defaultConcurrency = 4
	defaultCallTimeout = 30 * time.Second
)

// Service orchestrates one reminder run.
type Service struct {
	warranties models.WarrantyRepository
	users      models.UserRepository
	mail       mailer.Mailer
	compose    *composer.Composer

	logger    *zap.Logger
	telemetry tlmt.Telemetry

	from        string
	overrideTo  string
	horizon     time.Duration
	concurrency int
	callTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithHorizon sets the look-ahead window used by the fetch filter.
func WithHorizon(d time.Duration) Option {
	return func(s *Service) {
		s.horizon = d
	}
}

// WithConcurrency caps the number of owners processed in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

// WithCallTimeout bounds each external call (fetch, directory lookup,
// dispatch) so one stuck call cannot stall the whole run.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.callTimeout = d
	}
}

// WithOverrideRecipient redirects every send to a single fixed address
// without altering grouping or composition. Used for staging runs.
func WithOverrideRecipient(addr string) Option {
	return func(s *Service) {
		s.overrideTo = addr
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithTelemetry sets the telemetry sink.
func WithTelemetry(t tlmt.Telemetry) Option {
	return func(s *Service) {
		s.telemetry = t
	}
}

// New creates a reminder Service. from is the sender address; its presence is
// verified at the start of each run, together with the mailer configuration.
func New(warranties models.WarrantyRepository, users models.UserRepository, mail mailer.Mailer, compose *composer.Composer, from string, opts ...Option) *Service {
	ans := Service{
		warranties:  warranties,
		users:       users,
		mail:        mail,
		compose:     compose,
		from:        from,
		logger:      zap.NewNop(),
		telemetry:   gonoop.New(),
		horizon:     defaultHorizon,
		concurrency: defaultConcurrency,
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(&ans)
	}

	if ans.concurrency < 1 {
		ans.concurrency = 1
	}

	return &ans
}

// OwnerOutcome records the result of processing one owner.
type OwnerOutcome struct {
	OwnerID   string
	Recipient string
	MessageID string
	Upcoming  int
	Expired   int
	Err       error
}

// Report aggregates the outcome of one run.
type Report struct {
	Owners         int
	Sent           int
	Failed         int
	SkippedRecords int
	Outcomes       []OwnerOutcome
}

func (r *Report) add(out OwnerOutcome) {
	r.Owners++
	r.Outcomes = append(r.Outcomes, out)

	switch {
	case out.Err != nil:
		r.Failed++
	case out.MessageID != "":
		r.Sent++
	}
}

// Err returns every per-owner failure combined, or nil when all owners
// succeeded. Per-owner failures do not fail the run; they are only observable
// here and in the logs.
func (r *Report) Err() error {
	var errs []error
	for i := range r.Outcomes {
		if r.Outcomes[i].Err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", r.Outcomes[i].OwnerID, r.Outcomes[i].Err))
		}
	}

	return multierr.Combine(errs...)
}

// Run executes one reminder pass with now as the reference time. It returns
// an error only for fatal conditions: missing provider configuration or a
// failed fetch. Everything else is contained in the Report.
func (s *Service) Run(ctx context.Context, now time.Time) (*Report, error) {
	if s.from == "" {
		return nil, fmt.Errorf("sender address: %w", mailer.ErrNotConfigured)
	}

	if err := s.mail.Validate(); err != nil {
		return nil, err
	}

	report := &Report{}

	cutoff := now.Add(s.horizon)

	fetchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	records, err := s.warranties.SelectExpiringBefore(fetchCtx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch warranties: %w", err)
	}

	if len(records) == 0 {
		s.logger.Info("no expiring or expired warranties found")

		return report, nil
	}

	res := grouper.Group(records, now)

	report.SkippedRecords = len(res.Skipped)
	if len(res.Skipped) > 0 {
		s.logger.Warn("records excluded due to unusable dates",
			zap.Int("count", len(res.Skipped)),
			zap.Strings("ids", res.Skipped))
	}

	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, ownerID := range res.Owners() {
		batch := res.Batches[ownerID]

		g.Go(func() error {
			out := s.processOwner(ctx, batch, now)

			mu.Lock()
			report.add(out)
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	s.logger.Info("reminder run completed",
		zap.Int("owners", report.Owners),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("skipped_records", report.SkippedRecords))

	_ = s.telemetry.Send(ctx, tlmt.NewEvent("reminder_run", map[string]any{
		"owners":          report.Owners,
		"sent":            report.Sent,
		"failed":          report.Failed,
		"skipped_records": report.SkippedRecords,
	}))

	return report, nil
}

func (s *Service) processOwner(ctx context.Context, batch *grouper.Batch, now time.Time) OwnerOutcome {
	out := OwnerOutcome{
		OwnerID:  batch.OwnerID,
		Upcoming: len(batch.Upcoming),
		Expired:  len(batch.Expired),
	}

	if batch.Empty() {
		return out
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	user, err := s.users.GetByID(lookupCtx, batch.OwnerID)
	if err != nil {
		out.Err = fmt.Errorf("failed to resolve recipient: %w", err)
		s.logger.Warn("skipping owner", zap.String("owner_id", batch.OwnerID), zap.Error(out.Err))

		return out
	}

	if user.Email == "" {
		out.Err = ErrNoRecipient
		s.logger.Warn("skipping owner", zap.String("owner_id", batch.OwnerID), zap.Error(out.Err))

		return out
	}

	if _, err := emailaddress.Parse(user.Email); err != nil {
		out.Err = fmt.Errorf("invalid recipient address %q: %w", user.Email, err)
		s.logger.Warn("skipping owner", zap.String("owner_id", batch.OwnerID), zap.Error(out.Err))

		return out
	}

	to := user.Email
	if s.overrideTo != "" {
		to = s.overrideTo
	}

	out.Recipient = to

	email, err := s.compose.Compose(to, batch.Upcoming, batch.Expired, now)
	if err != nil {
		if errors.Is(err, composer.ErrNothingToCompose) {
			return out
		}

		out.Err = fmt.Errorf("failed to compose notification: %w", err)

		return out
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	id, err := s.mail.Send(sendCtx, mailer.Message{
		From:    s.from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		out.Err = fmt.Errorf("failed to dispatch: %w", err)
		s.logger.Warn("dispatch failed", zap.String("owner_id", batch.OwnerID), zap.Error(err))

		return out
	}

	out.MessageID = id

	s.logger.Info("reminder sent",
		zap.String("owner_id", batch.OwnerID),
		zap.String("message_id", id),
		zap.Int("upcoming", out.Upcoming),
		zap.Int("expired", out.Expired))

	return out
}
