package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"bff/cmd/internal/auth/autherr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token use markers carried in the "use" claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims is the JWT payload of both token kinds.
type Claims struct {
	Use string `json:"use,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and decodes tokens. It holds only immutable state and is safe
// for concurrent use.
type Issuer struct {
	keys       Keys
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	skew       time.Duration
}

// NewIssuer parses the keypair in cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	keys, err := ParseKeys(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Issuer) == "" || strings.TrimSpace(cfg.Audience) == "" {
		return nil, ErrConfig
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &Issuer{
		keys:       keys,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		skew:       cfg.ClockSkew,
	}, nil
}

// Audience returns the configured audience.
func (i *Issuer) Audience() string { return i.audience }

// IssuerName returns the configured issuer.
func (i *Issuer) IssuerName() string { return i.issuer }

// IssueAccessToken signs a short-lived access token for subject.
func (i *Issuer) IssueAccessToken(subject string, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.accessTTL)
	tok, err := i.sign(Claims{
		Use: UseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return "", time.Time{}, autherr.E("session.IssueAccessToken", autherr.ErrTokenCreation, err)
	}
	return tok, exp, nil
}

// IssueRefreshToken signs a refresh token with a fresh jti. The jti, not the
// token text, is the persistence key.
func (i *Issuer) IssueRefreshToken(subject string, now time.Time) (token, jti string, exp time.Time, err error) {
	const op = "session.IssueRefreshToken"

	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", time.Time{}, autherr.E(op, autherr.ErrTokenCreation, err)
	}
	jti = id.String()
	exp = now.Add(i.refreshTTL)

	token, err = i.sign(Claims{
		Use: UseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return "", "", time.Time{}, autherr.E(op, autherr.ErrTokenCreation, err)
	}
	return token, jti, exp, nil
}

func (i *Issuer) sign(c Claims) (string, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return "", errors.New("empty subject")
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, c).SignedString(i.keys.private)
}

// Decode verifies signature, issuer and audience. With checkExpiry false the
// exp claim is ignored; use that only to read a subject for diagnostics.
//
// A token whose only defect is its expiry yields autherr.ErrTokenExpired;
// every other failure yields autherr.ErrInvalidToken.
func (i *Issuer) Decode(token, audience, issuer string, checkExpiry bool, now time.Time) (Claims, error) {
	const op = "session.Decode"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
	}
	if checkExpiry {
		opts = append(opts,
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(i.skew),
			jwt.WithTimeFunc(func() time.Time { return now }),
		)
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var c Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.keys.public, nil
	})
	if err != nil {
		if isOnlyExpired(err) {
			return Claims{}, autherr.E(op, autherr.ErrTokenExpired, nil)
		}
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, err)
	}

	if !checkExpiry {
		if c.Issuer != issuer || !slices.Contains(c.Audience, audience) {
			return Claims{}, autherr.E(op, autherr.ErrInvalidToken, errors.New("issuer or audience mismatch"))
		}
	}
	if strings.TrimSpace(c.Subject) == "" {
		return Claims{}, autherr.E(op, autherr.ErrInvalidToken, errors.New("missing subject"))
	}

	return c, nil
}

// isOnlyExpired reports an exp failure on an otherwise valid token. The
// signature is verified before claims, so reaching claim errors implies it held.
func isOnlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}
