// Package mail delivers outgoing email. Senders do the delivery; Queue
// runs them in the background so request handlers never wait on SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay. The dialer authenticates only
// when a user is configured.
type SMTPSender struct {
	from string
	send func(m *gomail.Message) error
}

// NewSMTPSender returns a sender for the relay at host:port.
func NewSMTPSender(host, port, user, password, from string) (*SMTPSender, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", port, err)
	}
	d := gomail.NewDialer(host, p, user, password)
	return &SMTPSender{
		from: from,
		send: func(m *gomail.Message) error { return d.DialAndSend(m) },
	}, nil
}

// Send writes msg as a text/plain email. The dialer has no context, so ctx
// is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.message(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) message(msg Message) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetHeader("From", stripNewlines(s.from))
	m.SetHeader("To", stripNewlines(msg.To))
	m.SetHeader("Subject", stripNewlines(msg.Subject))
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/plain", msg.Body)
	return m
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail (not sent)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
