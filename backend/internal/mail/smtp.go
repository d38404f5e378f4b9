package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"folio/backend/internal/config"
)

// SMTPSender delivers messages over SMTP per the process configuration:
// implicit TLS (smtps), STARTTLS, or plaintext, with optional PLAIN auth.
// A fresh connection is dialed per send; the contact form is far too low
// volume to justify connection pooling.
type SMTPSender struct {
	cfg *config.Config
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender returns a sender for the given configuration. The caller is
// responsible for checking cfg.MailEnabled() first.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send dials the configured SMTP endpoint and delivers msg. One attempt; the
// caller decides what to tell the user on failure.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithTimeout(s.cfg.SendTimeout),
	}
	switch {
	case s.cfg.SMTPUseSSL:
		opts = append(opts, gomail.WithSSL())
	case s.cfg.SMTPUseTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if s.cfg.SMTPUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.SMTPUsername),
			gomail.WithPassword(s.cfg.SMTPPassword),
		)
	}
	client, err := gomail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("from %q: %w", msg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return fmt.Errorf("reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
