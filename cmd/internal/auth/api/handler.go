package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bff/cmd/identity"
	"bff/cmd/internal/auth/autherr"
	"bff/cmd/internal/auth/session"
	"bff/cmd/internal/auth/verification"
	"bff/cmd/internal/mail"
	"bff/cmd/security/password"
)

// VerificationDispatcher hands a verification email to background delivery.
// It must not block the caller.
type VerificationDispatcher interface {
	DispatchVerification(to mail.Recipient, rawToken string, ttl time.Duration) bool
}

// Deps are the services behind the auth endpoints.
type Deps struct {
	Users        identity.Store
	Passwords    password.Config
	Sessions     *session.Service
	Verification *verification.Service

	// Mail is optional. Without it registration skips the email.
	Mail VerificationDispatcher
}

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users        identity.Store
	passwords    password.Config
	sessions     *session.Service
	verification *verification.Service
	mail         VerificationDispatcher

	now func() time.Time

	dummyHash string
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler builds the auth handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Users == nil || deps.Sessions == nil || deps.Verification == nil {
		return nil, errors.New("authapi: missing dependency")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	h := &Handler{
		log:          log,
		cfg:          cfg,
		users:        deps.Users,
		passwords:    deps.Passwords,
		sessions:     deps.Sessions,
		verification: deps.Verification,
		mail:         deps.Mail,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := h.passwords.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/verify_email", h.handleVerifyEmail)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req registerRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	now := h.now()

	if err := h.validateRegistration(req); err != nil {
		writeServiceError(w, err)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		writeServiceError(w, autherr.E("authapi.register", autherr.ErrHash, err))
		return
	}

	u, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		if field, ok := identity.ConflictField(err); ok {
			h.audit(ctx, r, "auth.register.conflict", "", slog.String("field", field))
		} else {
			h.log.Error("auth.register.fail", "err", err)
		}
		writeServiceError(w, err)
		return
	}

	pair, err := h.sessions.EstablishSession(ctx, now, u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.sendVerificationEmail(ctx, now, u)
	h.audit(ctx, r, "auth.register", u.ID)

	writeJSON(w, http.StatusCreated, toTokenResponse(pair))
}

func (h *Handler) validateRegistration(req registerRequest) error {
	const op = "authapi.register"

	if err := identity.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := identity.ValidateUsername(req.Username); err != nil {
		return err
	}
	if err := h.passwords.Validate(req.Password); err != nil {
		return autherr.E(op, autherr.ErrMissingCredentials, err)
	}
	return nil
}

// sendVerificationEmail issues a verification token and queues the email.
// Registration has already succeeded; failures here are logged only. The
// token insert runs detached from the request so a client hanging up after
// account creation still gets its email.
func (h *Handler) sendVerificationEmail(ctx context.Context, now time.Time, u identity.User) {
	raw, err := h.verification.Issue(context.WithoutCancel(ctx), now, u.ID)
	if err != nil {
		h.log.Error("auth.register.verification.fail", "user_id", u.ID, "err", err)
		return
	}
	if h.mail == nil {
		return
	}

	to := mail.Recipient{UserID: u.ID, Username: u.Username, Email: u.Email}
	if !h.mail.DispatchVerification(to, raw, h.verification.TTL()) {
		h.log.Warn("auth.register.verification.dropped", "user_id", u.ID)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req loginRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeServiceError(w, autherr.E("authapi.login", autherr.ErrMissingCredentials, nil))
		return
	}

	u, err := h.users.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when user is missing.
			if h.dummyHash != "" {
				_ = h.passwords.Verify(h.dummyHash, req.Password)
			}
			h.audit(ctx, r, "auth.login.fail", "", slog.String("reason", "not_found"))
			writeServiceError(w, autherr.E("authapi.login", autherr.ErrWrongCredentials, nil))
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		writeServiceError(w, err)
		return
	}

	if err := h.passwords.Verify(u.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			h.audit(ctx, r, "auth.login.fail", u.ID, slog.String("reason", "bad_password"))
		} else {
			h.log.Error("auth.login.check.fail", "user_id", u.ID, "err", err)
		}
		writeServiceError(w, err)
		return
	}

	pair, err := h.sessions.EstablishSession(ctx, h.now(), u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.login", u.ID)
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req refreshRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeServiceError(w, autherr.E("authapi.refresh", autherr.ErrMissingCredentials, nil))
		return
	}

	pair, err := h.sessions.Rotate(r.Context(), h.now(), req.RefreshToken)
	if err != nil {
		h.log.Debug("auth.refresh.fail", "kind", autherr.KindOf(err).Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx := r.Context()
	now := h.now()

	access := bearerToken(r)
	if access == "" {
		writeServiceError(w, autherr.E("authapi.logout", autherr.ErrMissingCredentials, nil))
		return
	}

	claims, err := h.sessions.VerifyAccess(now, access)
	if err != nil {
		if errors.Is(err, autherr.ErrTokenExpired) {
			if sub, perr := h.sessions.PeekSubject(now, access); perr == nil {
				h.log.Info("auth.logout.access_expired", "subject_id", sub)
			}
		}
		writeServiceError(w, err)
		return
	}

	var req logoutRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeServiceError(w, autherr.E("authapi.logout", autherr.ErrMissingCredentials, nil))
		return
	}

	if err := h.sessions.Terminate(ctx, now, req.RefreshToken, claims.Subject); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.logout", claims.Subject)
	writeJSON(w, http.StatusOK, statusResponse{StatusCode: http.StatusOK, Message: "logged out"})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Token = q.Get("token")
		req.UserID = q.Get("user_id")
	case http.MethodPost:
		if !h.readJSON(w, r, &req) {
			return
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx := r.Context()

	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.UserID) == "" {
		writeServiceError(w, autherr.E("authapi.verify_email", autherr.ErrMissingCredentials, nil))
		return
	}
	userID, err := identity.ParseID(req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.verification.Consume(ctx, h.now(), req.Token, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.verify_email", userID)
	writeJSON(w, http.StatusOK, statusResponse{StatusCode: http.StatusOK, Message: "email verified"})
}
