// Package app wires the bff server runtime: config, logging, persistence,
// HTTP routes and background workers.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	authapi "bff/cmd/internal/auth/api"
	"bff/cmd/internal/auth/session"
	"bff/cmd/internal/auth/verification"
	"bff/cmd/internal/mail"
	"bff/cmd/security/password"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// App is the bff server runtime. It owns the backing clients, the HTTP
// server and the background workers.
type App struct {
	cfg Config
	log Logger

	backends *backends
	registry *prometheus.Registry

	auth       *authapi.Handler
	dispatcher *mail.Dispatcher
	sweeper    *Sweeper
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(sessCfg, pwCfg); err != nil {
		return nil, err
	}
	mailCfg, err := mail.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, log, reg, b, sessCfg, pwCfg, mailCfg)
	if err != nil {
		b.Close()
		return nil, err
	}
	return a, nil
}

func build(
	ctx context.Context,
	cfg Config,
	log Logger,
	reg *prometheus.Registry,
	b *backends,
	sessCfg session.Config,
	pwCfg password.Config,
	mailCfg mail.Config,
) (*App, error) {
	issuer, err := session.NewIssuer(sessCfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewService(sessCfg, issuer, b.refresh,
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(reg)),
	)

	verifier, err := verification.NewService(b.verify, b.users,
		verification.WithTTL(cfg.VerifyEmailTTL),
		verification.WithLogger(log),
		verification.WithRegisterer(reg),
	)
	if err != nil {
		return nil, err
	}

	sender, err := newVerificationSender(ctx, mailCfg, log)
	if err != nil {
		return nil, err
	}
	dispatcher := mail.NewDispatcher(sender, mailCfg.MaxInFlight, mailCfg.SendTimeout, log, reg)

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), authapi.Deps{
		Users:        b.users,
		Passwords:    pwCfg,
		Sessions:     sessions,
		Verification: verifier,
		Mail:         dispatcher,
	})
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	sweeper := NewSweeper(log, cfg.RefreshRetention, cfg.PurgeInterval, reg)
	for name, p := range b.purgeable {
		sweeper.Add(name, p)
	}

	return &App{
		cfg:        cfg,
		log:        log,
		backends:   b,
		registry:   reg,
		auth:       auth,
		dispatcher: dispatcher,
		sweeper:    sweeper,
	}, nil
}

// Handler returns the full middleware-wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.backends, a.registry, a.auth)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log)
	h = WithRequestID(h)
	return h
}

// Run starts the HTTP server and the retention sweeper and blocks until
// context cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.backends.dbEnabled(),
		"redis_enabled", a.backends.redis != nil,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error { return a.sweeper.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()

	// In-flight emails finish before the clients they may need go away.
	a.dispatcher.Close()
	a.backends.Close()

	a.log.Info("server.stopped")
	return err
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
