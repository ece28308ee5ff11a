package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"bff/cmd/internal/auth/autherr"
)

var (
	errJTICollision = errors.New("jti collided twice")
	errUnknownJTI   = errors.New("no refresh record for jti")
)

// Service drives the refresh-token lifecycle: establish, rotate, terminate.
//
// A refresh record moves Active -> Revoked exactly once, through
// Store.RevokeIfActive. The caller whose revoke succeeds is the only one that
// may mint a successor; every later presentation of the same token is
// rejected and classified as a duplicate or a replay.
type Service struct {
	issuer  *Issuer
	store   Store
	grace   time.Duration
	log     *slog.Logger
	metrics *Metrics
}

// Pair is an access/refresh token pair handed to a client.
type Pair struct {
	Subject      string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a Service.
func NewService(cfg Config, issuer *Issuer, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		issuer: issuer,
		store:  store,
		grace:  cfg.ReuseGrace,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issuer returns the token issuer the service signs with.
func (s *Service) Issuer() *Issuer { return s.issuer }

// EstablishSession mints a pair for subject and persists its refresh record.
func (s *Service) EstablishSession(ctx context.Context, now time.Time, subject string) (Pair, error) {
	const op = "session.EstablishSession"

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Pair{}, autherr.E(op, autherr.ErrMissingCredentials, nil)
	}

	p, err := s.mint(ctx, now, subject)
	if err != nil {
		s.metrics.establish("error")
		s.log.Error("auth.session.establish.fail", "subject_id", subject, "err", err)
		return Pair{}, err
	}
	s.metrics.establish(outcomeOK)
	return p, nil
}

// mint issues a pair and persists the refresh record. A jti collision is
// retried once with a fresh jti.
func (s *Service) mint(ctx context.Context, now time.Time, subject string) (Pair, error) {
	const op = "session.mint"

	for attempt := 0; attempt < 2; attempt++ {
		access, accessExp, err := s.issuer.IssueAccessToken(subject, now)
		if err != nil {
			return Pair{}, err
		}
		refresh, jti, refreshExp, err := s.issuer.IssueRefreshToken(subject, now)
		if err != nil {
			return Pair{}, err
		}

		_, err = s.store.Create(ctx, Record{
			SubjectID: subject,
			JTI:       jti,
			CreatedAt: now,
			ExpiresAt: refreshExp,
		})
		if errors.Is(err, ErrDuplicateJTI) {
			s.log.Warn("auth.session.jti_collision", "subject_id", subject, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return Pair{}, autherr.E(op, autherr.ErrStorage, err)
		}

		return Pair{
			Subject:      subject,
			AccessToken:  access,
			AccessExp:    accessExp,
			RefreshToken: refresh,
			RefreshExp:   refreshExp,
		}, nil
	}

	return Pair{}, autherr.E(op, autherr.ErrTokenCreation, errJTICollision)
}

// Rotate exchanges a refresh token for a new pair.
//
// Only the caller whose RevokeIfActive returns Revoked receives a pair. A
// resubmission within the reuse grace window is a benign duplicate; later
// ones are replays. Both are rejected with InvalidToken and neither touches
// other sessions of the subject.
func (s *Service) Rotate(ctx context.Context, now time.Time, presented string) (Pair, error) {
	const op = "session.Rotate"

	claims, err := s.decodeRefresh(presented, now)
	if err != nil {
		if errors.Is(err, autherr.ErrTokenExpired) {
			s.metrics.rotation(outcomeExpired)
		} else {
			s.metrics.rotation(outcomeInvalid)
		}
		return Pair{}, err
	}
	jti := claims.ID

	rec, err := s.find(ctx, op, jti)
	if err != nil {
		return Pair{}, err
	}
	if rec.SubjectID != claims.Subject {
		s.metrics.rotation(outcomeInvalid)
		s.log.Error("auth.refresh.subject_mismatch", "jti", jti, "subject_id", claims.Subject)
		return Pair{}, autherr.E(op, autherr.ErrInvalidToken, errors.New("subject mismatch"))
	}
	if rec.ExpiresAt.Before(now) {
		s.metrics.rotation(outcomeExpired)
		return Pair{}, autherr.E(op, autherr.ErrTokenExpired, nil)
	}

	if !rec.IsRevoked {
		outcome, err := s.store.RevokeIfActive(ctx, jti, now)
		if err != nil {
			return Pair{}, s.storeFailure(op, err)
		}

		if outcome == Revoked {
			// The successor write must survive a client disconnect: the old
			// record is already spent.
			p, err := s.mint(context.WithoutCancel(ctx), now, rec.SubjectID)
			if err != nil {
				s.metrics.rotation(outcomeCreationFailed)
				s.log.Error("auth.refresh.successor.fail", "jti", jti, "subject_id", rec.SubjectID, "err", err)
				return Pair{}, autherr.E(op, autherr.ErrTokenCreation, err)
			}
			s.metrics.rotation(outcomeRotated)
			s.log.Debug("auth.refresh.rotated", "jti", jti, "subject_id", rec.SubjectID)
			return p, nil
		}

		// Lost the race; classify against the winner's used_at.
		rec, err = s.find(ctx, op, jti)
		if err != nil {
			return Pair{}, err
		}
	}

	return Pair{}, s.rejectRevoked(op, now, rec)
}

func (s *Service) rejectRevoked(op string, now time.Time, rec Record) error {
	var cause error

	switch {
	case rec.UsedAt == nil:
		cause = errInconsistentRecord
		s.metrics.rotation(outcomeInconsistent)
		s.log.Error("auth.refresh.inconsistent", "jti", rec.JTI, "subject_id", rec.SubjectID)
	case now.Sub(*rec.UsedAt) <= s.grace:
		cause = errDuplicateSubmission
		s.metrics.rotation(outcomeDuplicate)
		s.log.Info("auth.refresh.duplicate", "jti", rec.JTI, "subject_id", rec.SubjectID,
			"since_use", now.Sub(*rec.UsedAt).String())
	default:
		cause = errReplayDetected
		s.metrics.rotation(outcomeReplay)
		s.log.Warn("auth.refresh.replay", "jti", rec.JTI, "subject_id", rec.SubjectID,
			"used_at", rec.UsedAt.UTC().Format(time.RFC3339))
	}

	return autherr.E(op, autherr.ErrInvalidToken, cause)
}

// Terminate ends the session behind a refresh token. subject is the caller
// authenticated by the access token; a token for anyone else is rejected.
// Terminating an already revoked session succeeds.
func (s *Service) Terminate(ctx context.Context, now time.Time, presented, subject string) error {
	const op = "session.Terminate"

	claims, err := s.decodeRefresh(presented, now)
	if err != nil {
		s.metrics.termination("invalid")
		return err
	}
	if claims.Subject != strings.TrimSpace(subject) {
		s.metrics.termination("wrong_subject")
		s.log.Warn("auth.logout.subject_mismatch", "jti", claims.ID, "subject_id", subject)
		return autherr.E(op, autherr.ErrWrongCredentials, nil)
	}

	outcome, err := s.store.RevokeIfActive(ctx, claims.ID, now)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.metrics.termination("invalid")
			return autherr.E(op, autherr.ErrInvalidToken, errUnknownJTI)
		}
		s.metrics.termination("error")
		return autherr.E(op, autherr.ErrStorage, err)
	}

	s.metrics.termination(outcome.String())
	return nil
}

// VerifyAccess fully validates an access token and returns its claims.
func (s *Service) VerifyAccess(now time.Time, token string) (Claims, error) {
	const op = "session.VerifyAccess"

	c, err := s.issuer.Decode(token, s.issuer.Audience(), s.issuer.IssuerName(), true, now)
	if err != nil {
		return Claims{}, err
	}
	if c.Use != UseAccess {
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, errWrongTokenUse)
	}
	return c, nil
}

// PeekSubject returns the subject of a correctly signed token while ignoring
// its expiry. It is for diagnostics only and never authorizes anything.
func (s *Service) PeekSubject(now time.Time, token string) (string, error) {
	c, err := s.issuer.Decode(token, s.issuer.Audience(), s.issuer.IssuerName(), false, now)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func (s *Service) decodeRefresh(presented string, now time.Time) (Claims, error) {
	const op = "session.decodeRefresh"

	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > 4096 {
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, nil)
	}

	c, err := s.issuer.Decode(presented, s.issuer.Audience(), s.issuer.IssuerName(), true, now)
	if err != nil {
		return Claims{}, err
	}
	if c.Use != UseRefresh {
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, errWrongTokenUse)
	}
	if strings.TrimSpace(c.ID) == "" {
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, errors.New("missing jti"))
	}
	return c, nil
}

func (s *Service) find(ctx context.Context, op, jti string) (Record, error) {
	rec, err := s.store.FindByJTI(ctx, jti)
	if err != nil {
		return Record{}, s.storeFailure(op, err)
	}
	return rec, nil
}

func (s *Service) storeFailure(op string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		s.metrics.rotation(outcomeInvalid)
		return autherr.E(op, autherr.ErrInvalidToken, errUnknownJTI)
	}
	s.metrics.rotation(outcomeStorageError)
	s.log.Error("auth.refresh.store.fail", "op", op, "err", err)
	return autherr.E(op, autherr.ErrStorage, err)
}
