// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
)

// Resend sends email through the Resend API.
type Resend struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// NewResend creates a Resend mailer. from is the sender address, for example
// "Contactbook <no-reply@example.com>".
func NewResend(apiKey, from string, logger *slog.Logger) (*Resend, error) {
	if apiKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("resend api key is required")
	}
	if from == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resend{client: resend.NewClient(apiKey), from: from, logger: logger}, nil
}

// SendConfirmation renders and sends the confirmation email.
func (r *Resend) SendConfirmation(ctx context.Context, msg auth.ConfirmationEmail) error {
	rendered, err := RenderConfirmation(msg)
	if err != nil {
		return err
	}

	resp, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{rendered.To},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", "resend").
			With("to", rendered.To).
			Wrap(err)
	}
	r.logger.DebugContext(ctx, "confirmation email sent", "to", rendered.To, "message_id", resp.Id)
	return nil
}

var _ auth.Mailer = (*Resend)(nil)
