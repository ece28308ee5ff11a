package app

import (
	"context"
	"net/http"

	"bff/cmd/internal/mail"
)

// newVerificationSender returns the real mailer when both the template bucket
// and Brevo are configured, and a logging no-op otherwise.
func newVerificationSender(ctx context.Context, cfg mail.Config, log Logger) (mail.VerificationSender, error) {
	if !cfg.TemplatesEnabled() || !cfg.DeliveryEnabled() {
		log.Info("mail.disabled",
			"templates", cfg.TemplatesEnabled(),
			"delivery", cfg.DeliveryEnabled(),
		)
		return mail.NoopSender{Log: log}, nil
	}

	source, err := mail.NewS3TemplateSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sender, err := mail.NewBrevoSender(cfg, &http.Client{Timeout: cfg.SendTimeout})
	if err != nil {
		return nil, err
	}

	log.Info("mail.enabled", "bucket", cfg.Bucket, "template", cfg.TemplateKey)
	return mail.NewMailer(cfg, source, sender), nil
}
