package mail

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestMailer_SendVerification(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PublicDomain = "https://acme.test"
	cfg.AppName = "Acme"
	cfg.SupportEmail = "help@acme.test"

	src := NewStaticTemplateSource(Template{
		Key:  cfg.TemplateKey,
		Body: []byte(`<a href="{{verification_url}}">{{app_name}}</a> {{expiry_minutes}} {{support_email}}`),
	})
	cs := &captureSender{}
	m := NewMailer(cfg, src, cs)

	err := m.SendVerification(context.Background(), Recipient{UserID: "01JUSER", Username: "alice_w", Email: "alice@example.com"}, "cafe", time.Hour)
	require.NoError(t, err)

	require.Len(t, cs.msgs, 1)
	msg := cs.msgs[0]
	assert.Equal(t, []Person{{Name: "alice_w", Email: "alice@example.com"}}, msg.To)
	assert.Equal(t, cfg.Subject, msg.Subject)
	assert.Contains(t, msg.HTML, ">Acme</a> 60 help@acme.test")

	u, err := url.Parse(m.VerificationURL("cafe", "01JUSER"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/verify_email", u.Path)
	assert.Equal(t, "cafe", u.Query().Get("token"))
	assert.Equal(t, "01JUSER", u.Query().Get("user_id"))
}

func TestMailer_MissingTemplate(t *testing.T) {
	t.Parallel()

	m := NewMailer(DefaultConfig(), NewStaticTemplateSource(), &captureSender{})
	err := m.SendVerification(context.Background(), Recipient{Email: "a@b.c"}, "t", time.Hour)
	assert.ErrorIs(t, err, ErrStorage)
}

type blockingSender struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
	fail    bool
}

func (b *blockingSender) SendVerification(ctx context.Context, _ Recipient, _ string, _ time.Duration) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	if b.fail {
		return ErrDelivery
	}
	return nil
}

func TestDispatcher_BoundedAndDrainedOnClose(t *testing.T) {
	t.Parallel()

	bs := &blockingSender{release: make(chan struct{})}
	reg := prometheus.NewRegistry()
	d := NewDispatcher(bs, 2, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), reg)

	assert.True(t, d.DispatchVerification(Recipient{UserID: "1"}, "t", time.Hour))
	assert.True(t, d.DispatchVerification(Recipient{UserID: "2"}, "t", time.Hour))
	assert.False(t, d.DispatchVerification(Recipient{UserID: "3"}, "t", time.Hour), "third send should be dropped while two are in flight")

	close(bs.release)
	d.Close()

	assert.Equal(t, 2.0, testutil.ToFloat64(d.sent.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.dropped))

	assert.False(t, d.DispatchVerification(Recipient{UserID: "4"}, "t", time.Hour), "closed dispatcher must refuse sends")
	assert.Equal(t, 2.0, testutil.ToFloat64(d.dropped))
}

func TestDispatcher_FailuresAreCountedNotPropagated(t *testing.T) {
	t.Parallel()

	bs := &blockingSender{release: make(chan struct{}), fail: true}
	close(bs.release)

	var logs strings.Builder
	var mu sync.Mutex
	log := slog.New(slog.NewTextHandler(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return logs.Write(p)
	}), nil))

	d := NewDispatcher(bs, 1, time.Minute, log, nil)
	require.True(t, d.DispatchVerification(Recipient{UserID: "u1"}, "secret-token", time.Hour))
	d.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(d.sent.WithLabelValues("error")))
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, logs.String(), "mail.verify_email.fail")
	assert.NotContains(t, logs.String(), "secret-token")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestNoopSender(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NoopSender{}.SendVerification(context.Background(), Recipient{}, "t", time.Hour))
}
