// Package mailer defines the outbound email dispatch contract.
package mailer

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the provider credentials or sender
// address are missing or rejected. This is a fatal precondition, distinct
// from per-message rejections.
var ErrNotConfigured = errors.New("email provider is not configured")

// Message is one outbound notification email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// SendError is a recoverable, per-message provider rejection (invalid
// address, rate limit, provider-side validation).
type SendError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *SendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s rejected message (status %d): %s", e.Provider, e.StatusCode, e.Reason)
	}

	return fmt.Sprintf("%s rejected message: %s", e.Provider, e.Reason)
}

// Mailer dispatches composed notifications via an external transactional
// email provider. Implementations perform at most one attempt per call;
// retry policy belongs to the caller.
type Mailer interface {
	// Validate reports a configuration problem, if any, without sending.
	Validate() error

	// Send dispatches one message and returns the provider message id.
	Send(ctx context.Context, msg Message) (string, error)
}
