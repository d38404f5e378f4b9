// Package mail turns contact-form submissions into outbound email.
//
// Delivery is a single attempt per call: no queue, no retry, no persistence.
// A failed send is reported to the caller and nothing else happens.
package mail

import (
	"context"
	"strings"

	"folio/backend/internal/config"
)

// Message is one outbound email, fully composed.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	ReplyTo string
}

// Sender delivers a composed message. Implementations make exactly one
// attempt per call.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Compose builds the outbound email for a contact submission. The recipient
// list and sender come from configuration; the submitter's address goes into
// Reply-To so a plain "reply" in the mail client reaches them.
func Compose(cfg *config.Config, name, email, text string) *Message {
	name = strings.TrimSpace(name)
	subject := "New message from " + name
	if prefix := strings.TrimSpace(cfg.SubjectPrefix); prefix != "" {
		subject = prefix + " " + subject
	}
	body := strings.Join([]string{
		"Name: " + name,
		"Email: " + email,
		"",
		"Message:",
		text,
	}, "\n")
	return &Message{
		From:    cfg.EmailFrom,
		To:      append([]string(nil), cfg.EmailTo...),
		Subject: subject,
		Body:    body,
		ReplyTo: email,
	}
}
