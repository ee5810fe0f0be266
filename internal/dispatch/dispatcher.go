// Package dispatch turns a detected code into user-visible effects: the
// clipboard, synthetic keystrokes, or a confirmation window.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/logging"
	"github.com/olivoil/otpwatch/internal/metrics"
)

// dedupeSize bounds how many recent codes are remembered.
const dedupeSize = 64

// Result is what a watcher hands over once a code has been found.
type Result struct {
	Code   string
	Source string
	// Keyword is the trigger keyword that matched, if known.
	Keyword string
}

// Outcome reports what Dispatch did. Err holds the first failure of a
// best-effort step; the steps after it still ran.
type Outcome struct {
	Mode     backend.Mode
	Restored bool
	Err      error
}

// History receives one record per dispatch.
type History interface {
	Append(rec backend.Record) error
}

// Dispatcher is safe for concurrent use by both watchers.
type Dispatcher struct {
	clip    Clipboard
	keys    Keyboard
	surface Surface
	history History
	log     *zap.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time

	mu         sync.Mutex
	seen       *expirable.LRU[string, struct{}]
	seenWindow time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithClipboard(c Clipboard) Option { return func(d *Dispatcher) { d.clip = c } }

func WithKeyboard(k Keyboard) Option { return func(d *Dispatcher) { d.keys = k } }

// WithSurface overrides the confirmation surface. Without it a
// ProcessSurface built from dispatch.confirm_command is used.
func WithSurface(s Surface) Option { return func(d *Dispatcher) { d.surface = s } }

func WithHistory(h History) Option { return func(d *Dispatcher) { d.history = h } }

func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// WithSleep replaces the delay between steps, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// New returns a Dispatcher using the system clipboard and the platform
// keyboard unless overridden.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		clip:  SystemClipboard{},
		keys:  NewKeyboard(),
		log:   zap.NewNop(),
		sleep: sleepCtx,
		now:   time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New()
	}
	return d
}

// Dispatch runs the action sequence for one code using the cfg snapshot.
// It never returns an error to the caller; failures are logged and
// reported in the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg config.Config, res Result) Outcome {
	log := d.log.With(
		zap.String("source", res.Source),
		logging.Code(res.Code, cfg.Log.RevealCodes),
	)

	if d.duplicate(res.Code, cfg.Dispatch.DedupeWindow) {
		log.Info("duplicate code suppressed")
		d.metrics.Suppressed.Inc()
		return Outcome{Mode: backend.ModeSuppressed}
	}

	var out Outcome
	fail := func(err error) {
		if out.Err == nil {
			out.Err = err
		}
	}

	// 1. Clipboard, saving what was there first.
	var saved string
	haveSaved := false
	if cfg.RecoverClipboard {
		prev, err := d.clip.ReadAll()
		if err != nil {
			log.Warn("read clipboard", zap.Error(err))
		} else {
			saved, haveSaved = prev, true
		}
	}
	out.Mode = backend.ModeClipboard
	if err := d.clip.WriteAll(res.Code); err != nil {
		log.Error("write clipboard", zap.Error(err))
		fail(err)
		// The code never reached the clipboard; let a retry through.
		d.forget(res.Code)
	}

	switch {
	// 2. Hand off to the confirmation window.
	case cfg.UseConfirmationSurface:
		out.Mode = backend.ModeConfirm
		if err := d.surfaceFor(cfg).Present(ctx, res.Code, res.Source); err != nil {
			log.Error("present confirmation", zap.Error(err))
			fail(err)
		}

	// 3. Paste, then optionally submit.
	case cfg.AutoPaste:
		pasted, err := d.paste(ctx, cfg, &out)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				log.Error("keystroke permission denied; grant accessibility access", zap.Error(err))
			} else {
				log.Error("simulate keystroke", zap.Error(err))
			}
			d.metrics.KeystrokeFailures.Inc()
			fail(err)
		}

		// 4. Restore only after a successful paste; otherwise the code
		// stays on the clipboard for the user.
		if pasted && haveSaved {
			if err := d.sleep(ctx, cfg.Dispatch.RestoreDelay); err != nil {
				fail(err)
				break
			}
			if err := d.clip.WriteAll(saved); err != nil {
				log.Warn("restore clipboard", zap.Error(err))
				fail(err)
			} else {
				out.Restored = true
			}
		}
	}

	log.Info("code dispatched", zap.String("mode", string(out.Mode)), zap.Bool("restored", out.Restored))
	d.metrics.Dispatches.WithLabelValues(res.Source, string(out.Mode)).Inc()
	d.record(res, out, log)
	return out
}

// paste reports whether the paste keystroke was delivered.
func (d *Dispatcher) paste(ctx context.Context, cfg config.Config, out *Outcome) (bool, error) {
	if err := d.sleep(ctx, cfg.Dispatch.PasteDelay); err != nil {
		return false, err
	}
	if err := d.keys.Paste(ctx); err != nil {
		return false, err
	}
	out.Mode = backend.ModePaste
	if !cfg.AutoSubmit {
		return true, nil
	}
	if err := d.sleep(ctx, cfg.Dispatch.SubmitDelay); err != nil {
		return true, err
	}
	if err := d.keys.Submit(ctx); err != nil {
		return true, err
	}
	out.Mode = backend.ModeSubmit
	return true, nil
}

func (d *Dispatcher) surfaceFor(cfg config.Config) Surface {
	if d.surface != nil {
		return d.surface
	}
	return ProcessSurface{Command: cfg.Dispatch.ConfirmCommand}
}

// duplicate records code and reports whether it was already seen within
// window. A zero window disables suppression.
func (d *Dispatcher) duplicate(code string, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil || d.seenWindow != window {
		d.seen = expirable.NewLRU[string, struct{}](dedupeSize, nil, window)
		d.seenWindow = window
	}
	if _, ok := d.seen.Get(code); ok {
		return true
	}
	d.seen.Add(code, struct{}{})
	return false
}

// forget drops code from the duplicate window.
func (d *Dispatcher) forget(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen != nil {
		d.seen.Remove(code)
	}
}

func (d *Dispatcher) record(res Result, out Outcome, log *zap.Logger) {
	if d.history == nil {
		return
	}
	rec := backend.NewRecord(res.Code, res.Source, out.Mode, d.now())
	rec.Keyword = res.Keyword
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if err := d.history.Append(rec); err != nil {
		log.Warn("append history", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
