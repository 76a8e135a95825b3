// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package authtest

import (
	"context"
	"sync"

	"github.com/contactbook/contactbook/internal/auth"
)

// Outbox is an auth.Mailer that records messages instead of sending them.
// If Err is set, every send fails with it after recording.
type Outbox struct {
	mu       sync.Mutex
	messages []auth.ConfirmationEmail
	Err      error
}

func (o *Outbox) SendConfirmation(_ context.Context, msg auth.ConfirmationEmail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return o.Err
}

// Messages returns a copy of the recorded messages.
func (o *Outbox) Messages() []auth.ConfirmationEmail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]auth.ConfirmationEmail(nil), o.messages...)
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (auth.ConfirmationEmail, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == addr {
			return o.messages[i], true
		}
	}
	return auth.ConfirmationEmail{}, false
}

var _ auth.Mailer = (*Outbox)(nil)
