// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import "context"

// ConfirmationEmail is the content of an email confirmation message.
type ConfirmationEmail struct {
	To      string
	Name    string
	BaseURL string
	Token   string
}

// Mailer delivers confirmation emails. Delivery is best-effort.
type Mailer interface {
	SendConfirmation(ctx context.Context, msg ConfirmationEmail) error
}
