package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastermindankur/warrantywallet/composer"
	"github.com/mastermindankur/warrantywallet/mailer"
	"github.com/mastermindankur/warrantywallet/models"
	"github.com/mastermindankur/warrantywallet/reminder"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(id, owner string, expiryDate time.Time) models.Warranty {
	return models.Warranty{
		ID:          id,
		OwnerID:     owner,
		ProductName: "Product " + id,
		Category:    models.CategoryElectronics,
		ExpiryDate:  expiryDate,
	}
}

type fakeWarrantyRepo struct {
	records []models.Warranty
	err     error
	fetched bool
}

func (f *fakeWarrantyRepo) Get(context.Context, string) (models.Warranty, error) {
	return models.Warranty{}, errors.New("not implemented")
}

func (f *fakeWarrantyRepo) Create(context.Context, *models.Warranty) error { return nil }

func (f *fakeWarrantyRepo) Delete(context.Context, string) error { return nil }

func (f *fakeWarrantyRepo) SelectByOwner(context.Context, string) ([]models.Warranty, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWarrantyRepo) SelectExpiringBefore(_ context.Context, cutoff time.Time) ([]models.Warranty, error) {
	f.fetched = true

	if f.err != nil {
		return nil, f.err
	}

	var ans []models.Warranty
	for _, rec := range f.records {
		if rec.ExpiryDate.IsZero() || !rec.ExpiryDate.After(cutoff) {
			ans = append(ans, rec)
		}
	}

	return ans, nil
}

type fakeUserRepo struct {
	users map[string]models.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, errors.New("user not found")
	}

	return user, nil
}

func (f *fakeUserRepo) Create(context.Context, *models.User) error { return nil }

func (f *fakeUserRepo) Delete(context.Context, string) error { return nil }

type fakeMailer struct {
	mu          sync.Mutex
	sent        []mailer.Message
	validateErr error
	failFor     map[string]error // recipient -> error
}

func (f *fakeMailer) Validate() error {
	return f.validateErr
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[msg.To]; ok {
		return "", err
	}

	f.sent = append(f.sent, msg)

	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeMailer) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]mailer.Message(nil), f.sent...)
}

func newService(t *testing.T, warranties *fakeWarrantyRepo, users *fakeUserRepo, mail *fakeMailer, opts ...reminder.Option) *reminder.Service {
	t.Helper()

	c, err := composer.New()
	require.NoError(t, err)

	return reminder.New(warranties, users, mail, c, "reminders@warrantywallet.online", opts...)
}

func TestRunAbortsWhenMailerNotConfigured(t *testing.T) {
	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{record("w1", "u1", date(2024, time.June, 10))},
	}
	users := &fakeUserRepo{users: map[string]models.User{}}
	mail := &fakeMailer{validateErr: mailer.ErrNotConfigured}

	svc := newService(t, warranties, users, mail)

	_, err := svc.Run(context.Background(), date(2024, time.June, 1))
	require.ErrorIs(t, err, mailer.ErrNotConfigured)

	// no partial work before the precondition check
	assert.False(t, warranties.fetched)
	assert.Empty(t, mail.messages())
}

func TestRunAbortsWhenSenderMissing(t *testing.T) {
	c, err := composer.New()
	require.NoError(t, err)

	warranties := &fakeWarrantyRepo{}
	svc := reminder.New(warranties, &fakeUserRepo{}, &fakeMailer{}, c, "")

	_, err = svc.Run(context.Background(), date(2024, time.June, 1))
	require.ErrorIs(t, err, mailer.ErrNotConfigured)
	assert.False(t, warranties.fetched)
}

func TestRunCompletesCleanlyOnEmptyStore(t *testing.T) {
	warranties := &fakeWarrantyRepo{}
	users := &fakeUserRepo{users: map[string]models.User{}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	report, err := svc.Run(context.Background(), date(2024, time.June, 1))
	require.NoError(t, err)

	assert.Zero(t, report.Owners)
	assert.Zero(t, report.Sent)
	assert.Empty(t, mail.messages())
}

func TestRunSendsOneEmailPerOwner(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{
			record("w1", "u1", date(2024, time.June, 10)),
			record("w2", "u1", date(2024, time.May, 1)),
			record("w3", "u2", date(2024, time.June, 20)),
		},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "one@example.com"},
		"u2": {ID: "u2", Email: "two@example.com"},
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Owners)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Failed)
	require.NoError(t, report.Err())

	messages := mail.messages()
	require.Len(t, messages, 2)

	recipients := map[string]bool{}
	for _, msg := range messages {
		recipients[msg.To] = true
		assert.Equal(t, "reminders@warrantywallet.online", msg.From)
		assert.Equal(t, "Your Warranty Status Update from WarrantyWallet", msg.Subject)
	}

	assert.True(t, recipients["one@example.com"])
	assert.True(t, recipients["two@example.com"])
}

func TestRunMissingEmailIsContained(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{
			record("w1", "u1", date(2024, time.June, 10)),
			record("w2", "u2", date(2024, time.June, 20)),
		},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "one@example.com"},
		"u2": {ID: "u2"}, // no address on file
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Owners)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)

	messages := mail.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "one@example.com", messages[0].To)

	require.Error(t, report.Err())
	assert.ErrorIs(t, report.Err(), reminder.ErrNoRecipient)
}

func TestRunDispatchFailureDoesNotAbortBatch(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{
			record("w1", "u1", date(2024, time.June, 10)),
			record("w2", "u2", date(2024, time.June, 20)),
			record("w3", "u3", date(2024, time.June, 25)),
		},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "one@example.com"},
		"u2": {ID: "u2", Email: "two@example.com"},
		"u3": {ID: "u3", Email: "three@example.com"},
	}}
	mail := &fakeMailer{
		failFor: map[string]error{
			"one@example.com": &mailer.SendError{Provider: "resend", StatusCode: 422, Reason: "rejected"},
		},
	}

	svc := newService(t, warranties, users, mail, reminder.WithConcurrency(1))

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Owners)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)

	messages := mail.messages()
	require.Len(t, messages, 2)

	var failedOwner string
	for _, out := range report.Outcomes {
		if out.Err != nil {
			failedOwner = out.OwnerID
		}
	}

	assert.Equal(t, "u1", failedOwner)
}

func TestRunCountsMalformedRecords(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{
			record("w1", "u1", date(2024, time.June, 10)),
			record("bad", "u1", time.Time{}),
		},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "one@example.com"},
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedRecords)
	assert.Equal(t, 1, report.Sent)
}

func TestRunOverrideRecipientRedirectsAllSends(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{
			record("w1", "u1", date(2024, time.June, 10)),
			record("w2", "u2", date(2024, time.June, 20)),
		},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "one@example.com"},
		"u2": {ID: "u2", Email: "two@example.com"},
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail,
		reminder.WithOverrideRecipient("staging@warrantywallet.online"))

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sent)

	for _, msg := range mail.messages() {
		assert.Equal(t, "staging@warrantywallet.online", msg.To)
	}
}

func TestRunOverrideStillRequiresResolvableEmail(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{record("w1", "u1", date(2024, time.June, 10))},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1"}, // no address on file
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail,
		reminder.WithOverrideRecipient("staging@warrantywallet.online"))

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, mail.messages())
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	warranties := &fakeWarrantyRepo{err: errors.New("store unavailable")}
	users := &fakeUserRepo{users: map[string]models.User{}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	_, err := svc.Run(context.Background(), date(2024, time.June, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestRunInvalidRecipientAddress(t *testing.T) {
	now := date(2024, time.June, 1)

	warranties := &fakeWarrantyRepo{
		records: []models.Warranty{record("w1", "u1", date(2024, time.June, 10))},
	}
	users := &fakeUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "not-an-address"},
	}}
	mail := &fakeMailer{}

	svc := newService(t, warranties, users, mail)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, mail.messages())
}
