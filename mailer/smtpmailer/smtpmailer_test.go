package smtpmailer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mastermindankur/warrantywallet/mailer"
	"github.com/mastermindankur/warrantywallet/mailer/smtpmailer"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    string
		user    string
		pass    string
		wantErr bool
	}{
		{
			name: "fully configured",
			host: "smtp.example.com", port: "465", user: "relay", pass: "secret",
			wantErr: false,
		},
		{
			name: "missing host",
			port: "465", user: "relay", pass: "secret",
			wantErr: true,
		},
		{
			name: "missing password",
			host: "smtp.example.com", port: "465", user: "relay",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := smtpmailer.New(tt.host, tt.port, tt.user, tt.pass).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, mailer.ErrNotConfigured)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
