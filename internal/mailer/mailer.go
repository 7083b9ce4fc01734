// Package mailer sends transactional email for account verification and
// password resets.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"tribune/internal/config"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns an SMTP-backed mailer when an SMTP host is configured and a
// log-only mailer otherwise, so development environments work without a mail
// relay.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{
		addr:     cfg.SMTPHost + ":" + cfg.SMTPPort,
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	addr     string
	host     string
	user     string
	password string
	from     string
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.from, to, subject, body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes outbound mail to the log instead of delivering it.
type LogMailer struct{}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.InfoContext(ctx, "mail (log only)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
