// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package mail delivers account emails.
package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
)

// ConfirmationSubject is the subject line of confirmation emails.
const ConfirmationSubject = "Confirm your email"

const confirmPath = "api/auth/confirmed_email/"

var (
	confirmHTML = htmltemplate.Must(htmltemplate.New("confirm.html").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.Name}},</p>
<p>Thanks for signing up for Contactbook. Please confirm your email address:</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If the button does not work, open this link: {{.Link}}</p>
</body>
</html>
`))

	confirmText = texttemplate.Must(texttemplate.New("confirm.txt").Parse(`Hi {{.Name}},

Thanks for signing up for Contactbook. Confirm your email address by opening:

{{.Link}}
`))
)

// Rendered is a message ready to hand to a provider.
type Rendered struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// ConfirmationLink builds <baseURL>api/auth/confirmed_email/<token>.
func ConfirmationLink(baseURL, token string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + confirmPath + token
}

// RenderConfirmation renders the confirmation email for msg.
func RenderConfirmation(msg auth.ConfirmationEmail) (Rendered, error) {
	data := struct {
		Name string
		Link string
	}{
		Name: msg.Name,
		Link: ConfirmationLink(msg.BaseURL, msg.Token),
	}

	var html, text bytes.Buffer
	if err := confirmHTML.Execute(&html, data); err != nil {
		return Rendered{}, oops.Code("MAIL_RENDER_FAILED").With("template", "html").Wrap(err)
	}
	if err := confirmText.Execute(&text, data); err != nil {
		return Rendered{}, oops.Code("MAIL_RENDER_FAILED").With("template", "text").Wrap(err)
	}
	return Rendered{
		To:      msg.To,
		Subject: ConfirmationSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
