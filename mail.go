package pubsite

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers form submission emails.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// ConsoleMailer writes messages to the log instead of sending them. It is
// the mailer used in development.
type ConsoleMailer struct {
	Log zerolog.Logger
}

func (m ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.Log.Info().
		Str("from", msg.From).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email")
	return nil
}

// SMTPMailer sends messages through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = m.cfg.From
	}
	if from == "" || len(msg.To) == 0 {
		return fmt.Errorf("smtp: message needs a sender and at least one recipient")
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, from, msg.To, formatMessage(from, msg)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	header := func(k, v string) {
		// Header values must not carry line breaks.
		v = strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
		b.WriteString(k + ": " + v + "\r\n")
	}
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", msg.Subject)
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
