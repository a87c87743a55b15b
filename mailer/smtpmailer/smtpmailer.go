// Package smtpmailer implements the mailer contract over SMTP with implicit TLS.
package smtpmailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"github.com/mastermindankur/warrantywallet/mailer"
)

var _ mailer.Mailer = (*Sender)(nil)

// Sender sends HTML email through an SMTP relay on port 465 (implicit TLS).
type Sender struct {
	host     string
	port     string
	username string
	password string
}

// New creates a new SMTP sender.
func New(host, port, username, password string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

// Validate reports whether the relay credentials are present.
func (s *Sender) Validate() error {
	if s.host == "" || s.port == "" || s.username == "" || s.password == "" {
		return fmt.Errorf("%w: missing SMTP host, port or credentials", mailer.ErrNotConfigured)
	}

	return nil
}

// Send dispatches one message. SMTP assigns no provider id, so the generated
// Message-ID header doubles as the returned id.
func (s *Sender) Send(ctx context.Context, msg mailer.Message) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	msgID := fmt.Sprintf("<%s@%s>", uuid.New().String(), s.host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", msgID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	serverAddr := s.host + ":" + s.port

	dialer := tls.Dialer{
		Config: &tls.Config{
			ServerName: s.host,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", serverAddr)
	if err != nil {
		return "", fmt.Errorf("failed to dial SMTP relay: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := client.Auth(auth); err != nil {
		return "", fmt.Errorf("%w: SMTP authentication failed: %s", mailer.ErrNotConfigured, err)
	}

	if err := client.Mail(bareAddress(msg.From)); err != nil {
		return "", &mailer.SendError{Provider: "smtp", Reason: fmt.Sprintf("MAIL FROM rejected: %v", err)}
	}

	if err := client.Rcpt(msg.To); err != nil {
		return "", &mailer.SendError{Provider: "smtp", Reason: fmt.Sprintf("RCPT TO rejected: %v", err)}
	}

	w, err := client.Data()
	if err != nil {
		return "", &mailer.SendError{Provider: "smtp", Reason: fmt.Sprintf("DATA rejected: %v", err)}
	}

	if _, err := w.Write([]byte(b.String())); err != nil {
		return "", &mailer.SendError{Provider: "smtp", Reason: fmt.Sprintf("write failed: %v", err)}
	}

	if err := w.Close(); err != nil {
		return "", &mailer.SendError{Provider: "smtp", Reason: fmt.Sprintf("message not accepted: %v", err)}
	}

	return msgID, nil
}

// bareAddress strips an optional display name, "Name <a@b>" becomes "a@b".
// The envelope sender must be a bare address even when the From header
// carries a display name.
func bareAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from
	}

	return addr.Address
}
