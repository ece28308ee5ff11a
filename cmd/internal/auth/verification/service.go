package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"bff/cmd/identity/ids"
	"bff/cmd/internal/auth/autherr"
	"bff/cmd/security/token"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultTTL = time.Hour

// UserVerifier flips the verified flag on a user once a token is consumed.
type UserVerifier interface {
	MarkEmailVerified(ctx context.Context, id string, now time.Time) error
}

// Service manages verification token issuance and consumption.
type Service struct {
	store      Store
	users      UserVerifier
	ttl        time.Duration
	tokenBytes int
	log        *slog.Logger

	issued   prometheus.Counter
	consumed *prometheus.CounterVec
}

// Option configures the Service.
type Option func(*Service) error

// WithTTL sets how long an issued token stays consumable.
func WithTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("verification: non-positive ttl")
		}
		s.ttl = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// WithRegisterer registers the service counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) error {
		return errors.Join(reg.Register(s.issued), reg.Register(s.consumed))
	}
}

// NewService constructs a Service with a one hour token lifetime.
func NewService(store Store, users UserVerifier, opts ...Option) (*Service, error) {
	if store == nil || users == nil {
		return nil, errors.New("verification: nil dependency")
	}
	s := &Service{
		store:      store,
		users:      users,
		ttl:        defaultTTL,
		tokenBytes: token.DefaultBytes,
		log:        slog.Default(),
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "verification",
			Name:      "issued_total",
			Help:      "Email verification tokens issued.",
		}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "verification",
			Name:      "consumed_total",
			Help:      "Email verification attempts by result.",
		}, []string{"result"}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TTL returns the token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a token for subject and returns the raw value. The raw value
// is never stored; callers must hand it straight to the mailer.
func (s *Service) Issue(ctx context.Context, now time.Time, subject string) (string, error) {
	const op = "verification.Issue"

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", autherr.E(op, autherr.ErrMissingCredentials, nil)
	}

	raw, err := token.NewRandomHex(s.tokenBytes)
	if err != nil {
		return "", autherr.E(op, autherr.ErrTokenCreation, err)
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return "", autherr.E(op, autherr.ErrTokenCreation, err)
	}

	err = s.store.Create(ctx, Record{
		ID:        id,
		SubjectID: subject,
		TokenHash: token.HashSHA256Hex(raw),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if errors.Is(err, ErrDuplicateHash) {
		return "", autherr.E(op, autherr.ErrDuplicateKey, nil)
	}
	if err != nil {
		return "", autherr.E(op, autherr.ErrStorage, err)
	}

	s.issued.Inc()
	return raw, nil
}

// Consume redeems raw for subject and marks the subject's email verified.
// A token redeems at most once; every later attempt is InvalidToken.
func (s *Service) Consume(ctx context.Context, now time.Time, raw, subject string) error {
	const op = "verification.Consume"

	raw = strings.TrimSpace(raw)
	subject = strings.TrimSpace(subject)
	if raw == "" || subject == "" || len(raw) > 2*128 {
		s.consumed.WithLabelValues("invalid").Inc()
		return autherr.E(op, autherr.ErrInvalidToken, nil)
	}

	hash := token.HashSHA256Hex(raw)
	rec, err := s.store.Consume(ctx, hash, subject, now)
	if err != nil {
		if errors.Is(err, ErrNotConsumable) {
			s.consumed.WithLabelValues("invalid").Inc()
			return autherr.E(op, autherr.ErrInvalidToken, nil)
		}
		s.consumed.WithLabelValues("error").Inc()
		return autherr.E(op, autherr.ErrStorage, err)
	}

	if err := s.users.MarkEmailVerified(ctx, subject, now); err != nil {
		s.consumed.WithLabelValues("error").Inc()
		s.log.Error("auth.verify_email.mark.fail", "subject_id", subject, "err", err)

		// The flag was not flipped: hand the token back so a retry can redeem it.
		usedAt := now
		if rec.UsedAt != nil {
			usedAt = *rec.UsedAt
		}
		if rerr := s.store.Release(context.WithoutCancel(ctx), hash, subject, usedAt); rerr != nil {
			s.log.Error("auth.verify_email.release.fail", "subject_id", subject, "err", rerr)
		}
		if errors.Is(err, autherr.ErrNotFound) {
			return autherr.E(op, autherr.ErrNotFound, nil)
		}
		return autherr.E(op, autherr.ErrStorage, err)
	}

	s.consumed.WithLabelValues("ok").Inc()
	return nil
}
