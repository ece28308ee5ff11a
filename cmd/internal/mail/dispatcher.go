package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs verification sends in the background on a bounded number
// of goroutines. When every slot is busy the send is dropped and logged.
type Dispatcher struct {
	sender  VerificationSender
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
	g      errgroup.Group

	sent    *prometheus.CounterVec
	dropped prometheus.Counter
}

// NewDispatcher returns a dispatcher allowing maxInFlight concurrent sends,
// each bounded by timeout. Counters are registered on reg when non-nil.
func NewDispatcher(sender VerificationSender, maxInFlight int, timeout time.Duration, log *slog.Logger, reg prometheus.Registerer) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		sender:  sender,
		timeout: timeout,
		log:     log,
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "mail",
			Name:      "sends_total",
			Help:      "Verification email sends by result.",
		}, []string{"result"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "mail",
			Name:      "dropped_total",
			Help:      "Verification emails dropped because the dispatcher was saturated or closed.",
		}),
	}
	d.g.SetLimit(maxInFlight)
	if reg != nil {
		reg.MustRegister(d.sent, d.dropped)
	}
	return d
}

// DispatchVerification queues a send and returns immediately. It reports
// whether the send was accepted. The request context is not used: the send
// must outlive the request that triggered it.
func (d *Dispatcher) DispatchVerification(to Recipient, rawToken string, ttl time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.dropped.Inc()
		d.log.Warn("mail.verify_email.dropped", "user_id", to.UserID, "reason", "closed")
		return false
	}

	ok := d.g.TryGo(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		start := time.Now()
		if err := d.sender.SendVerification(ctx, to, rawToken, ttl); err != nil {
			d.sent.WithLabelValues("error").Inc()
			d.log.Error("mail.verify_email.fail", "user_id", to.UserID, "err", err)
			return nil
		}
		d.sent.WithLabelValues("ok").Inc()
		d.log.Info("mail.verify_email.sent", "user_id", to.UserID, "dur_ms", time.Since(start).Milliseconds())
		return nil
	})
	if !ok {
		d.dropped.Inc()
		d.log.Warn("mail.verify_email.dropped", "user_id", to.UserID, "reason", "saturated")
	}
	return ok
}

// Close stops accepting sends and waits for in-flight ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	_ = d.g.Wait()
}
