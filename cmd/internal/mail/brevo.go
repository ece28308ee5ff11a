package mail

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

// Person is a named mailbox.
type Person struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Message is one outgoing transactional email.
type Message struct {
	To      []Person
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type brevoPayload struct {
	Sender      Person   `json:"sender"`
	To          []Person `json:"to"`
	HTMLContent string   `json:"htmlContent"`
	Subject     string   `json:"subject"`
}

// BrevoSender posts messages to the Brevo transactional email API.
type BrevoSender struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    Person
}

// NewBrevoSender returns a sender for cfg. A nil client gets a 10s timeout.
func NewBrevoSender(cfg Config, client *http.Client) (*BrevoSender, error) {
	if !cfg.DeliveryEnabled() || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: brevo delivery not configured", ErrConfig)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BrevoSender{
		client:  client,
		baseURL: strings.TrimRight(cfg.BrevoBaseURL, "/"),
		apiKey:  cfg.BrevoAPIKey,
		from:    Person{Name: cfg.SenderName, Email: cfg.SenderEmail},
	}, nil
}

// Send implements Sender.
func (b *BrevoSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrDelivery)
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      b.from,
		To:          msg.To,
		HTMLContent: msg.HTML,
		Subject:     msg.Subject,
	})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: brevo status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}
