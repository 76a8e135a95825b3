// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/contactbook/contactbook/internal/auth"
)

// Log is a mailer for development that logs the confirmation link instead
// of sending anything.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log mailer.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// SendConfirmation logs the link that would have been emailed.
func (l *Log) SendConfirmation(ctx context.Context, msg auth.ConfirmationEmail) error {
	l.logger.InfoContext(ctx, "confirmation email not sent, no mail provider configured",
		"to", msg.To,
		"link", ConfirmationLink(msg.BaseURL, msg.Token),
	)
	return nil
}

var _ auth.Mailer = (*Log)(nil)
