// Package email delivers plain-text mail through SMTP or SendGrid.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	ProviderID() string
}

type Config struct {
	SMTPHost       string
	SMTPPort       string
	From           string
	FromName       string
	SendGridAPIKey string
}

// New prefers SendGrid, then SMTP, and falls back to a logging sender when
// neither is configured.
func New(cfg Config, logger *slog.Logger) Sender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@salonbook.local"
	}
	switch {
	case strings.TrimSpace(cfg.SendGridAPIKey) != "":
		return NewSendGridSender(cfg.SendGridAPIKey, from, cfg.FromName)
	case strings.TrimSpace(cfg.SMTPHost) != "":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, from)
	default:
		return &LogSender{logger: logger}
	}
}

// SMTPSender sends email via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "25"
	}
	return &SMTPSender{
		addr: strings.TrimSpace(host) + ":" + port,
		from: from,
	}
}

func (s *SMTPSender) ProviderID() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := buildMessage(s.from, msg.To, msg.Subject, msg.Body)
	return smtp.SendMail(s.addr, nil, s.from, []string{msg.To}, []byte(raw))
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}

type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) *SendGridSender {
	if fromName == "" {
		fromName = "SalonBook"
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}
}

func (s *SendGridSender) ProviderID() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		msg.Body,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender records that a message would have been sent.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) ProviderID() string { return "email-log" }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (no provider configured)", "subject", msg.Subject)
	return nil
}
