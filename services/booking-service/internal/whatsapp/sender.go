// Package whatsapp sends text messages through an Evolution API instance.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config points at one Evolution API instance.
type Config struct {
	BaseURL  string
	APIKey   string
	Instance string
}

// EvolutionSender implements notify.MessageSender against the Evolution
// API's sendText endpoint.
type EvolutionSender struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

func NewEvolutionSender(cfg Config, client *http.Client) *EvolutionSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EvolutionSender{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		instance: cfg.Instance,
		client:   client,
	}
}

type sendTextRequest struct {
	Number  string          `json:"number"`
	Text    string          `json:"text"`
	Options sendTextOptions `json:"options"`
}

type sendTextOptions struct {
	Delay    int    `json:"delay"`
	Presence string `json:"presence"`
}

func (s *EvolutionSender) SendMessage(ctx context.Context, phone, text string) error {
	number, err := FormatPhoneNumber(phone)
	if err != nil {
		return err
	}
	body, err := json.Marshal(sendTextRequest{
		Number: number,
		Text:   text,
		Options: sendTextOptions{
			Delay:    1200,
			Presence: "composing",
		},
	})
	if err != nil {
		return fmt.Errorf("encode sendText payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", s.baseURL, s.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendText request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// FormatPhoneNumber normalizes a raw phone into the JID the provider
// expects. Bolivian mobile numbers (8 digits, leading 6 or 7) get the 591
// country code added.
func FormatPhoneNumber(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := digits.String()
	if n == "" {
		return "", fmt.Errorf("phone %q has no digits", phone)
	}
	if len(n) == 8 && (n[0] == '6' || n[0] == '7') {
		n = "591" + n
	}
	return n + "@c.us", nil
}

// NoopSender discards messages. Used when no provider is configured, so
// local environments can exercise the booking flow without a WhatsApp
// instance.
type NoopSender struct{}

func (NoopSender) SendMessage(ctx context.Context, phone, text string) error { return nil }
