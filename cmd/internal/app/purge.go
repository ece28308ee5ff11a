package app

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Purger deletes records created before cutoff.
type Purger interface {
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically drops token records past the retention window. It
// never runs on a request path.
type Sweeper struct {
	log       Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	targets map[string]Purger

	deleted  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewSweeper builds a Sweeper. A nil reg leaves its counters unregistered.
func NewSweeper(log Logger, retention, interval time.Duration, reg prometheus.Registerer) *Sweeper {
	s := &Sweeper{
		log:       log,
		retention: retention,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		targets:   make(map[string]Purger),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "purge",
			Name:      "deleted_total",
			Help:      "Token records deleted by the retention sweeper.",
		}, []string{"store"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "purge",
			Name:      "failures_total",
			Help:      "Failed retention sweeps.",
		}, []string{"store"}),
	}
	if reg != nil {
		reg.MustRegister(s.deleted, s.failures)
	}
	return s
}

// Add registers a store under name. Stores with native expiry are not added.
func (s *Sweeper) Add(name string, p Purger) {
	if p != nil {
		s.targets[name] = p
	}
}

// SweepOnce purges every target once. A failing target does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)

	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n, err := s.targets[name].PurgeCreatedBefore(ctx, cutoff)
		if err != nil {
			s.failures.WithLabelValues(name).Inc()
			s.log.Error("purge.fail", "store", name, "err", err)
			continue
		}
		s.deleted.WithLabelValues(name).Add(float64(n))
		if n > 0 {
			s.log.Info("purge.ok", "store", name, "deleted", n)
		}
	}
}

// Run sweeps on every interval tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if len(s.targets) == 0 || s.interval <= 0 || s.retention <= 0 {
		return nil
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}
