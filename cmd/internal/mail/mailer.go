package mail

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Recipient identifies the user a verification email goes to.
type Recipient struct {
	UserID   string
	Username string
	Email    string
}

// VerificationSender sends the email verification message.
type VerificationSender interface {
	SendVerification(ctx context.Context, to Recipient, rawToken string, ttl time.Duration) error
}

// NoopSender drops every message. It is used when mail is not configured.
type NoopSender struct {
	Log *slog.Logger
}

// SendVerification implements VerificationSender.
func (n NoopSender) SendVerification(_ context.Context, to Recipient, _ string, _ time.Duration) error {
	if n.Log != nil {
		n.Log.Debug("mail.verify_email.skipped", "user_id", to.UserID)
	}
	return nil
}

// Mailer fetches, renders and sends the verification email.
type Mailer struct {
	cfg    Config
	source TemplateSource
	sender Sender
}

// NewMailer wires a template source and a sender.
func NewMailer(cfg Config, source TemplateSource, sender Sender) *Mailer {
	return &Mailer{cfg: cfg, source: source, sender: sender}
}

// VerificationURL builds the link the user clicks.
func (m *Mailer) VerificationURL(rawToken, userID string) string {
	q := url.Values{}
	q.Set("token", rawToken)
	q.Set("user_id", userID)
	return m.cfg.PublicDomain + "/auth/verify_email?" + q.Encode()
}

// SendVerification implements VerificationSender.
func (m *Mailer) SendVerification(ctx context.Context, to Recipient, rawToken string, ttl time.Duration) error {
	tpl, err := m.source.Fetch(ctx, m.cfg.TemplateKey)
	if err != nil {
		return err
	}

	html, err := RenderVerifyEmail(tpl, VerifyEmailValues{
		AppName:         m.cfg.AppName,
		Username:        to.Username,
		VerificationURL: m.VerificationURL(rawToken, to.UserID),
		ExpiryMinutes:   int(ttl / time.Minute),
		SupportEmail:    m.cfg.SupportEmail,
		CompanyAddress:  m.cfg.CompanyAddress,
		UnsubscribeURL:  m.cfg.UnsubscribeURL,
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		To:      []Person{{Name: to.Username, Email: to.Email}},
		Subject: m.cfg.Subject,
		HTML:    html,
	})
}
