package app

import (
	"net/http"

	authapi "bff/cmd/internal/auth/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	b *backends,
	gatherer prometheus.Gatherer,
	auth *authapi.Handler,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !b.dbEnabled() {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if err := b.ready(r.Context()); err != nil {
			http.Error(w, "backends not ready", http.StatusServiceUnavailable)
			log.Info("readyz.not_ready", "err", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if auth != nil {
		auth.Register(mux)
	}
}
