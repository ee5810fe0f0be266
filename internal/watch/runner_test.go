package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/source"
)

// fakeSource counts Run calls and delivers whatever is sent on feed.
type fakeSource struct {
	label   string
	runs    atomic.Int32
	started chan struct{}
	feed    chan source.RawMessage
}

func newFakeSource(label string) *fakeSource {
	return &fakeSource{
		label:   label,
		started: make(chan struct{}, 4),
		feed:    make(chan source.RawMessage),
	}
}

func (s *fakeSource) Label() string { return s.label }

func (s *fakeSource) Run(ctx context.Context, deliver Deliver) error {
	s.runs.Add(1)
	s.started <- struct{}{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.feed:
			deliver(ctx, m)
		}
	}
}

// watchableConfig lets a test trigger a config reload.
type watchableConfig struct {
	*fakeConfig
	changes chan struct{}
}

func newWatchableConfig(cfg config.Config) *watchableConfig {
	return &watchableConfig{fakeConfig: &fakeConfig{cfg: cfg}, changes: make(chan struct{})}
}

func (w *watchableConfig) Watch(ctx context.Context, fn func(config.Config, error)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.changes:
			fn(w.Load())
		}
	}
}

func waitStarted(t *testing.T, s *fakeSource) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s watcher not started", s.label)
	}
}

func startRunner(t *testing.T, cfg *watchableConfig, messages, mail Source) (*Runner, *fakeDispatcher, func()) {
	t.Helper()
	fd := &fakeDispatcher{}
	r := NewRunner(cfg, NewHandler(cfg, fd, zap.NewNop()), messages, mail, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return r, fd, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("runner did not stop")
		}
	}
}

func TestRunner_StartMailOnce(t *testing.T) {
	cfg := newWatchableConfig(config.Defaults())
	messages, mail := newFakeSource(LabelMessages), newFakeSource(LabelMail)
	r, _, stop := startRunner(t, cfg, messages, mail)
	defer stop()

	waitStarted(t, messages)
	assert.True(t, r.StartMail())
	assert.False(t, r.StartMail())
	waitStarted(t, mail)
	assert.Equal(t, int32(1), mail.runs.Load())
}

func TestRunner_StartMailBeforeRun(t *testing.T) {
	r := NewRunner(newWatchableConfig(config.Defaults()), nil, nil, newFakeSource(LabelMail), zap.NewNop())
	assert.False(t, r.StartMail())
}

func TestRunner_MailAtStartup(t *testing.T) {
	c := config.Defaults()
	c.ListenToMail = true
	cfg := newWatchableConfig(c)
	messages, mail := newFakeSource(LabelMessages), newFakeSource(LabelMail)
	r, _, stop := startRunner(t, cfg, messages, mail)
	defer stop()

	waitStarted(t, messages)
	waitStarted(t, mail)
	assert.False(t, r.StartMail())
}

func TestRunner_MailToggledAtRuntime(t *testing.T) {
	cfg := newWatchableConfig(config.Defaults())
	messages, mail := newFakeSource(LabelMessages), newFakeSource(LabelMail)
	_, fd, stop := startRunner(t, cfg, messages, mail)
	defer stop()

	waitStarted(t, messages)
	assert.Zero(t, mail.runs.Load())

	cfg.set(func(c *config.Config) { c.ListenToMail = true })
	cfg.changes <- struct{}{}
	waitStarted(t, mail)

	// A second flip does not start another watcher.
	cfg.changes <- struct{}{}
	mail.feed <- source.RawMessage{Text: "Your verification code is 482913"}
	messages.feed <- source.RawMessage{Text: "验证码 7788"}
	assert.Equal(t, int32(1), mail.runs.Load())

	require.Eventually(t, func() bool {
		fd.mu.Lock()
		defer fd.mu.Unlock()
		return len(fd.got) == 2
	}, 5*time.Second, 10*time.Millisecond)
}
