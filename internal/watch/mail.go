package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/metrics"
	"github.com/olivoil/otpwatch/internal/source"
)

// MailWatcher reacts to new mail files appearing anywhere under a mail
// directory tree.
type MailWatcher struct {
	dir      string
	pattern  *regexp.Regexp
	settle   time.Duration
	cooldown time.Duration
	maxChars int
	log      *zap.Logger
	metrics  *metrics.Metrics

	parse func(path string) (string, error)
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewMailWatcher builds a watcher from the [watch] config section.
func NewMailWatcher(cfg config.WatchConfig, log *zap.Logger) (*MailWatcher, error) {
	re, err := regexp.Compile(cfg.MailPattern)
	if err != nil {
		return nil, fmt.Errorf("mail_pattern: %w", err)
	}
	return &MailWatcher{
		dir:      cfg.MailDir,
		pattern:  re,
		settle:   cfg.MailSettle,
		cooldown: cfg.MailCooldown,
		maxChars: cfg.MailMaxChars,
		log:      log,
		metrics:  metrics.New(),
		parse:    source.ParseMailFile,
		sleep:    sleepCtx,
		now:      time.Now,
	}, nil
}

func (w *MailWatcher) Label() string { return LabelMail }

// Run watches the tree until ctx is done. Events are handled one at a
// time; the watcher sleeps for the cooldown after each.
func (w *MailWatcher) Run(ctx context.Context, deliver Deliver) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	n, err := w.addTree(fw, w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching mail", zap.String("dir", w.dir), zap.Int("dirs", n))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if _, err := w.addTree(fw, event.Name); err != nil {
					w.log.Warn("watch new mail dir", zap.String("dir", event.Name), zap.Error(err))
				}
				continue
			}
			if !w.pattern.MatchString(filepath.Base(event.Name)) {
				continue
			}
			w.handle(ctx, event.Name, deliver)
			if err := w.sleep(ctx, w.cooldown); err != nil {
				return nil
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("mail watcher error", zap.Error(err))
		}
	}
}

// handle waits for the file to settle, parses it and delivers the body.
func (w *MailWatcher) handle(ctx context.Context, path string, deliver Deliver) {
	w.metrics.Events.WithLabelValues(LabelMail).Inc()
	if err := w.sleep(ctx, w.settle); err != nil {
		return
	}

	text, err := w.parse(path)
	if err != nil {
		w.log.Warn("parse mail", zap.String("path", path), zap.Error(err))
		w.metrics.MailSkipped.WithLabelValues("parse").Inc()
		return
	}
	if n := utf8.RuneCountInString(text); n > w.maxChars {
		w.log.Debug("mail too long, skipped", zap.String("path", path), zap.Int("chars", n))
		w.metrics.MailSkipped.WithLabelValues("size").Inc()
		return
	}
	deliver(ctx, source.RawMessage{
		Text:       text,
		ObservedAt: w.now(),
		Origin:     "mail:" + path,
	})
}

// addTree adds root and every directory below it.
func (w *MailWatcher) addTree(fw *fsnotify.Watcher, root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped.
			w.log.Debug("skip mail dir", zap.String("dir", path), zap.Error(err))
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			w.log.Debug("skip mail dir", zap.String("dir", path), zap.Error(err))
			return nil
		}
		n++
		return nil
	})
	return n, err
}
