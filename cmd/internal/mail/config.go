package mail

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds bucket, provider and branding settings.
//
// Templates are enabled when a bucket and credentials are set. Delivery is
// enabled when BREVO_API_KEY is set. With either missing the app falls back
// to NoopSender.
type Config struct {
	// R2 / S3 template bucket.
	AccountID       string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	Region          string
	TemplateKey     string

	// Brevo delivery.
	BrevoAPIKey  string
	BrevoBaseURL string
	SenderName   string
	SenderEmail  string

	// Values substituted into the template.
	PublicDomain   string
	AppName        string
	SupportEmail   string
	CompanyAddress string
	UnsubscribeURL string
	Subject        string

	// Dispatcher limits.
	SendTimeout time.Duration
	MaxInFlight int
}

// DefaultConfig returns defaults without credentials.
func DefaultConfig() Config {
	return Config{
		Region:       "auto",
		TemplateKey:  "templates/verify_email.html",
		BrevoBaseURL: "https://api.brevo.com",
		PublicDomain: "http://localhost:8080",
		AppName:      "bff",
		Subject:      "Verify your email",
		SendTimeout:  15 * time.Second,
		MaxInFlight:  8,
	}
}

// LoadConfigFromEnv loads mail configuration from environment variables.
//
// Bucket: R2_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID,
// R2_ACCESS_KEY_SECRET, R2_ENDPOINT, R2_REGION, BFF_VERIFY_EMAIL_TEMPLATE_KEY.
//
// Provider: BREVO_API_KEY, BREVO_BASE_URL, BREVO_SENDER_NAME, BREVO_SENDER_EMAIL.
//
// Branding: BFF_PUBLIC_DOMAIN, BFF_APP_NAME, BFF_SUPPORT_EMAIL,
// BFF_COMPANY_ADDRESS, BFF_UNSUBSCRIBE_URL, BFF_VERIFY_EMAIL_SUBJECT.
//
// Limits: BFF_MAIL_SEND_TIMEOUT, BFF_MAIL_MAX_IN_FLIGHT.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("R2_ACCOUNT_ID", &cfg.AccountID)
	str("R2_BUCKET_NAME", &cfg.Bucket)
	str("R2_ACCESS_KEY_ID", &cfg.AccessKeyID)
	str("R2_ACCESS_KEY_SECRET", &cfg.AccessKeySecret)
	str("R2_ENDPOINT", &cfg.Endpoint)
	str("R2_REGION", &cfg.Region)
	str("BFF_VERIFY_EMAIL_TEMPLATE_KEY", &cfg.TemplateKey)
	str("BREVO_API_KEY", &cfg.BrevoAPIKey)
	str("BREVO_BASE_URL", &cfg.BrevoBaseURL)
	str("BREVO_SENDER_NAME", &cfg.SenderName)
	str("BREVO_SENDER_EMAIL", &cfg.SenderEmail)
	str("BFF_PUBLIC_DOMAIN", &cfg.PublicDomain)
	str("BFF_APP_NAME", &cfg.AppName)
	str("BFF_SUPPORT_EMAIL", &cfg.SupportEmail)
	str("BFF_COMPANY_ADDRESS", &cfg.CompanyAddress)
	str("BFF_UNSUBSCRIBE_URL", &cfg.UnsubscribeURL)
	str("BFF_VERIFY_EMAIL_SUBJECT", &cfg.Subject)

	if v := os.Getenv("BFF_MAIL_SEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: BFF_MAIL_SEND_TIMEOUT", ErrConfig)
		}
		cfg.SendTimeout = d
	}
	if v := os.Getenv("BFF_MAIL_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%w: BFF_MAIL_MAX_IN_FLIGHT", ErrConfig)
		}
		cfg.MaxInFlight = n
	}

	if cfg.Endpoint == "" && cfg.AccountID != "" {
		cfg.Endpoint = "https://" + cfg.AccountID + ".r2.cloudflarestorage.com"
	}
	cfg.PublicDomain = strings.TrimRight(cfg.PublicDomain, "/")

	if cfg.DeliveryEnabled() && cfg.SenderEmail == "" {
		return Config{}, fmt.Errorf("%w: BREVO_SENDER_EMAIL is required with BREVO_API_KEY", ErrConfig)
	}

	return cfg, nil
}

// TemplatesEnabled reports whether the template bucket is configured.
func (c Config) TemplatesEnabled() bool {
	return c.Bucket != "" && c.Endpoint != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}

// DeliveryEnabled reports whether a Brevo API key is configured.
func (c Config) DeliveryEnabled() bool {
	return c.BrevoAPIKey != ""
}
