package watch

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/metrics"
)

// ConfigSource is a ConfigLoader that can also report file changes.
type ConfigSource interface {
	ConfigLoader
	Watch(ctx context.Context, fn func(config.Config, error)) error
}

// Runner owns the watcher lifecycle. The message watcher always runs; the
// mail watcher starts when listen_to_mail is on, either at startup or the
// first time the config file turns it on.
type Runner struct {
	config   ConfigSource
	handler  *Handler
	messages Source
	mail     Source
	log      *zap.Logger

	mailStarted atomic.Bool

	mu    sync.Mutex
	spawn func(Source)
}

// NewRunner wires the sources. mail may be nil when mail watching cannot be
// set up at all.
func NewRunner(cfg ConfigSource, h *Handler, messages, mail Source, log *zap.Logger) *Runner {
	return &Runner{
		config:   cfg,
		handler:  h,
		messages: messages,
		mail:     mail,
		log:      log,
	}
}

// Run blocks until ctx is cancelled and every task has stopped.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	r.mu.Lock()
	r.spawn = func(src Source) {
		g.Go(func() error {
			r.runSource(gctx, src)
			return nil
		})
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.spawn = nil
		r.mu.Unlock()
	}()

	cfg, err := r.config.Load()
	if err != nil {
		r.log.Warn("config has problems, using defaults where needed", zap.Error(err))
	}

	r.start(r.messages)
	if cfg.ListenToMail {
		r.StartMail()
	}

	g.Go(func() error {
		err := r.config.Watch(gctx, r.reload)
		if err != nil {
			r.log.Warn("config watch stopped", zap.Error(err))
		}
		return nil
	})

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			if err := metrics.Serve(gctx, cfg.Metrics.Addr, r.log.Named("metrics")); err != nil {
				r.log.Error("metrics server", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

// StartMail starts the mail watcher. It returns true only for the call
// that actually started it.
func (r *Runner) StartMail() bool {
	if r.mail == nil {
		return false
	}
	r.mu.Lock()
	running := r.spawn != nil
	r.mu.Unlock()
	if !running {
		return false
	}
	if !r.mailStarted.CompareAndSwap(false, true) {
		return false
	}
	r.start(r.mail)
	return true
}

func (r *Runner) start(src Source) {
	if src == nil {
		return
	}
	r.mu.Lock()
	spawn := r.spawn
	r.mu.Unlock()
	if spawn != nil {
		spawn(src)
	}
}

func (r *Runner) reload(cfg config.Config, err error) {
	if err != nil {
		r.log.Warn("config reloaded with problems", zap.Error(err))
	} else {
		r.log.Info("config reloaded")
	}
	if cfg.ListenToMail && r.StartMail() {
		r.log.Info("mail watcher started after config change")
	}
}

// runSource runs src until ctx is done. Setup failures are logged; the
// other watchers keep running.
func (r *Runner) runSource(ctx context.Context, src Source) {
	log := r.log.With(zap.String("source", src.Label()))
	log.Info("watcher started")
	if err := src.Run(ctx, r.handler.Deliver(src.Label())); err != nil {
		log.Error("watcher failed", zap.Error(err))
		return
	}
	log.Info("watcher stopped")
}
