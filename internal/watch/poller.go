package watch

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/metrics"
	"github.com/olivoil/otpwatch/internal/source"
)

// Fetcher returns the most recent message inside a trailing window.
type Fetcher interface {
	Latest(ctx context.Context, window time.Duration) (source.RawMessage, bool, error)
}

// StorePoller watches the message database by polling file modification
// times. SQLite in WAL mode touches the -wal file on every insert, so both
// the database and its -wal sibling are checked.
type StorePoller struct {
	path     string
	fetch    Fetcher
	interval time.Duration
	window   time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
	stat     func(string) (os.FileInfo, error)

	lastMod time.Time
}

// NewStorePoller polls path every interval and asks fetch for messages
// newer than window.
func NewStorePoller(path string, fetch Fetcher, interval, window time.Duration, log *zap.Logger) *StorePoller {
	return &StorePoller{
		path:     path,
		fetch:    fetch,
		interval: interval,
		window:   window,
		log:      log,
		metrics:  metrics.New(),
		stat:     os.Stat,
	}
}

func (p *StorePoller) Label() string { return LabelMessages }

// Run records the current modification time, so existing messages are not
// dispatched at startup, then polls until ctx is done.
func (p *StorePoller) Run(ctx context.Context, deliver Deliver) error {
	if mod, err := p.modTime(); err == nil {
		p.lastMod = mod
	} else {
		p.log.Warn("stat message store", zap.String("path", p.path), zap.Error(err))
	}
	p.log.Info("polling message store", zap.String("path", p.path), zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx, deliver)
		}
	}
}

// tick is one CheckModified → Fetch → deliver step.
func (p *StorePoller) tick(ctx context.Context, deliver Deliver) {
	mod, err := p.modTime()
	if err != nil {
		p.log.Warn("stat message store", zap.String("path", p.path), zap.Error(err))
		p.metrics.FetchErrors.WithLabelValues(LabelMessages).Inc()
		return
	}
	if mod.Equal(p.lastMod) {
		return
	}
	p.lastMod = mod
	p.metrics.Events.WithLabelValues(LabelMessages).Inc()

	msg, ok, err := p.fetch.Latest(ctx, p.window)
	if err != nil {
		p.log.Warn("query message store", zap.Error(err))
		p.metrics.FetchErrors.WithLabelValues(LabelMessages).Inc()
		return
	}
	if !ok {
		p.log.Debug("store changed but no recent message")
		return
	}
	deliver(ctx, msg)
}

// modTime returns the newest mtime of the database and its -wal file.
// Only a failure on both counts as an error.
func (p *StorePoller) modTime() (time.Time, error) {
	var newest time.Time
	var firstErr error
	found := false
	for _, path := range []string{p.path, p.path + "-wal"} {
		info, err := p.stat(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		found = true
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if !found {
		return time.Time{}, firstErr
	}
	return newest, nil
}
