// Package notify delivers client messages over WhatsApp and fans appointment events out
// to in-app channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Dispatcher sends one text message to a phone number.
type Dispatcher interface {
	Send(ctx context.Context, phone string, message string) error
	ProviderID() string
}

// WebhookSender posts messages to a WhatsApp gateway webhook.
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
	return "whatsapp-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, phone string, message string) error {
	if s.url == "" {
		return errors.New("whatsapp webhook url not configured")
	}
	to := NormalizePhone(phone)
	if to == "" {
		return fmt.Errorf("invalid phone %q", phone)
	}
	raw, err := json.Marshal(map[string]string{
		"to":   to,
		"body": message,
		"link": WhatsAppLink(to, message),
	})
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
		return fmt.Errorf("whatsapp webhook returned %d", resp.StatusCode)
	}
	return nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "whatsapp-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}

// NormalizePhone strips everything but digits and adds the 55 country code to bare
// national numbers. It returns "" when no digits remain.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "55") || len(digits) <= 11 {
		digits = "55" + digits
	}
	return digits
}

// WhatsAppLink builds a click-to-chat link for a normalized phone.
func WhatsAppLink(phone, message string) string {
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(message)
}
