// Package watch runs the change watchers and feeds what they observe
// through keyword matching and code extraction into the dispatcher.
package watch

import (
	"context"
	"time"

	"github.com/olivoil/otpwatch/internal/source"
)

// Source labels, shown to the user and recorded in history.
const (
	LabelMessages = "Messages"
	LabelMail     = "Mail"
)

// Deliver receives each new piece of text a Source observes. Calls from
// one Source are strictly sequential.
type Deliver func(ctx context.Context, msg source.RawMessage)

// Source is a change watcher. Run blocks until ctx is done. Per-tick and
// per-event failures are logged inside Run; the returned error is only for
// setup failures.
type Source interface {
	Label() string
	Run(ctx context.Context, deliver Deliver) error
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
