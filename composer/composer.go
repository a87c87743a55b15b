// Package composer renders warranty reminder notifications as HTML email.
package composer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/mastermindankur/warrantywallet/expiry"
	"github.com/mastermindankur/warrantywallet/models"
)

// ErrNothingToCompose signals that a batch carries no records and no email
// should be dispatched for it.
var ErrNothingToCompose = errors.New("nothing to compose")

const (
	defaultSubject = "Your Warranty Status Update from WarrantyWallet"
	defaultAppURL  = "https://warrantywallet.online"

	brandName = "WarrantyWallet"

	dateLayout = "Jan 2, 2006"
)

// Section describes the presentation of one record group in the rendered body.
type Section struct {
	Title string
	Color string
}

// Email is one fully rendered notification, addressed and ready to dispatch.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Composer renders per-owner notification batches. Section labels and colors
// are parameterized so staging and production variants share one renderer.
type Composer struct {
	appURL   string
	subject  string
	upcoming Section
	expired  Section
	tpl      *template.Template
}

// Option configures a Composer.
type Option func(*Composer)

// WithAppURL sets the base URL used for the dashboard button.
func WithAppURL(u string) Option {
	return func(c *Composer) {
		c.appURL = u
	}
}

// WithSubject overrides the notification subject line.
func WithSubject(s string) Option {
	return func(c *Composer) {
		c.subject = s
	}
}

// WithUpcomingSection overrides the presentation of the upcoming group.
func WithUpcomingSection(s Section) Option {
	return func(c *Composer) {
		c.upcoming = s
	}
}

// WithExpiredSection overrides the presentation of the expired group.
func WithExpiredSection(s Section) Option {
	return func(c *Composer) {
		c.expired = s
	}
}

// New creates a Composer with the provided options.
func New(opts ...Option) (*Composer, error) {
	ans := Composer{
		appURL:   defaultAppURL,
		subject:  defaultSubject,
		upcoming: Section{Title: "Expiring Soon", Color: "#005050"},
		expired:  Section{Title: "Recently Expired", Color: "#c00000"},
	}

	for _, opt := range opts {
		opt(&ans)
	}

	tpl, err := template.New("reminder").Parse(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body template: %w", err)
	}

	ans.tpl = tpl

	return &ans, nil
}

// Compose renders the notification for one owner's batch. Given identical
// inputs and the same now, the output is byte-identical. It returns
// ErrNothingToCompose when both sequences are empty.
func (c *Composer) Compose(recipient string, upcoming, expired []models.Warranty, now time.Time) (Email, error) {
	if len(upcoming) == 0 && len(expired) == 0 {
		return Email{}, ErrNothingToCompose
	}

	data := templateData{
		Brand:        brandName,
		DashboardURL: c.appURL + "/dashboard",
		Year:         now.UTC().Year(),
	}

	up, err := c.buildSection(c.upcoming, upcoming, now, false)
	if err != nil {
		return Email{}, err
	}

	ex, err := c.buildSection(c.expired, expired, now, true)
	if err != nil {
		return Email{}, err
	}

	data.Sections = append(data.Sections, up, ex)

	var buf bytes.Buffer
	if err := c.tpl.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("failed to render body: %w", err)
	}

	return Email{
		To:      recipient,
		Subject: c.subject,
		HTML:    buf.String(),
	}, nil
}

func (c *Composer) buildSection(cfg Section, records []models.Warranty, now time.Time, attention bool) (sectionData, error) {
	ans := sectionData{
		Title:     cfg.Title,
		Color:     template.CSS(cfg.Color),
		Attention: attention,
	}

	for i := range records {
		label, err := expiry.RemainingLabel(records[i].ExpiryDate, now)
		if err != nil {
			return sectionData{}, fmt.Errorf("record %s: %w", records[i].ID, err)
		}

		ans.Items = append(ans.Items, itemData{
			ProductName: records[i].ProductName,
			ExpiresOn:   records[i].ExpiryDate.Format(dateLayout),
			Status:      label,
		})
	}

	return ans, nil
}

type templateData struct {
	Brand        string
	DashboardURL string
	Sections     []sectionData
	Year         int
}

type sectionData struct {
	Title     string
	Color     template.CSS
	Attention bool
	Items     []itemData
}

type itemData struct {
	ProductName string
	ExpiresOn   string
	Status      string
}

const bodyTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Warranty Status Update</title>
    <style>
        body { margin: 0; padding: 0; background-color: #F0F0F0; font-family: 'Inter', sans-serif, Arial; color: #0a0a0a; }
        .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; border: 1px solid #e0e0e0; }
        .header { background-color: #008080; color: #ffffff; padding: 24px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; font-weight: 700; }
        .content { padding: 24px; }
        .content p { font-size: 16px; line-height: 1.5; margin: 0 0 16px; }
        .section-title { font-size: 18px; margin-top: 20px; border-bottom: 2px solid #e0e0e0; padding-bottom: 5px; }
        .warranty-list { padding-top: 10px; }
        .warranty-item { padding: 12px 0; border-bottom: 1px solid #f0f0f0; display: flex; justify-content: space-between; align-items: center; }
        .warranty-item:last-child { border-bottom: none; }
        .product-name { font-weight: 600; color: #333; font-size: 16px; }
        .expiry-detail { font-size: 14px; color: #555; text-align: right; }
        .expiry-date { display: block; }
        .expiry-status { font-weight: 500; color: #333; }
        .button-container { text-align: center; margin: 24px 0; }
        .button { background-color: #FFD700; color: #0a0a0a; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; display: inline-block; }
        .footer { padding: 24px; text-align: center; font-size: 12px; color: #7f7f7f; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Brand}}</h1></div>
        <div class="content">
            <p>Hi there,</p>
            <p>Here is your summary of product warranties that require your attention.</p>
{{- range .Sections}}{{if .Items}}
            <h3 class="section-title" style="color: {{.Color}};"{{if .Attention}} role="alert"{{end}}>{{.Title}}</h3>
            <div class="warranty-list">
{{- range .Items}}
                <div class="warranty-item">
                    <div class="product-name">{{.ProductName}}</div>
                    <div class="expiry-detail">
                        <span class="expiry-date">Expires: {{.ExpiresOn}}</span>
                        <span class="expiry-status">({{.Status}})</span>
                    </div>
                </div>
{{- end}}
            </div>
{{- end}}{{end}}
            <p style="margin-top: 24px;">You can view and manage all your items by visiting your dashboard.</p>
            <div class="button-container"><a href="{{.DashboardURL}}" class="button">View My Dashboard</a></div>
        </div>
        <div class="footer"><p>&copy; {{.Year}} {{.Brand}}. All rights reserved.</p></div>
    </div>
</body>
</html>`
