// Package resend implements the mailer contract on top of the Resend HTTP API.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mastermindankur/warrantywallet/mailer"
)

const defaultBaseURL = "https://api.resend.com"

var _ mailer.Mailer = (*Client)(nil)

// Client is a Resend API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new Resend API client.
func New(apiKey string, opts ...Option) *Client {
	ans := Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(&ans)
	}

	return &ans
}

// Validate reports whether the client carries an API key.
func (c *Client) Validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: missing Resend API key", mailer.ErrNotConfigured)
	}

	return nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send dispatches one message via POST /emails and returns the provider
// message id. Authentication failures map to mailer.ErrNotConfigured; any
// other rejection maps to a per-message mailer.SendError.
func (c *Client) Send(ctx context.Context, msg mailer.Message) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	payload := sendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: provider rejected credentials (status %d)", mailer.ErrNotConfigured, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var apiErr errorResponse
		reason := string(respBody)
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			reason = apiErr.Message
		}

		return "", &mailer.SendError{
			Provider:   "resend",
			StatusCode: resp.StatusCode,
			Reason:     reason,
		}
	}

	var response sendResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse send response: %w", err)
	}

	return response.ID, nil
}
