// Package sms sends text messages through an HTTP webhook provider.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/salonbook/salonbook/libs/phone"
)

type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

type WebhookSender struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookSender(url string, token string) *WebhookSender {
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	raw, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender only logs, masking the number. Used when no webhook is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) ProviderID() string {
	return "sms-log"
}

func (s *LogSender) Send(ctx context.Context, to string, body string) error {
	s.logger.InfoContext(ctx, "sms not sent (no provider configured)", "to", phone.Mask(to), "chars", len(body))
	return nil
}

// New picks the webhook sender when url is set.
func New(url, token string, logger *slog.Logger) Sender {
	if strings.TrimSpace(url) == "" {
		return NewLogSender(logger)
	}
	return NewWebhookSender(url, token)
}
