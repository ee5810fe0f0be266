package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "OTPWATCH_"

	// Editors write a file in several steps; wait for them to finish.
	watchSettle = 200 * time.Millisecond
	// A file that never stops changing is still reloaded this often.
	watchMaxWait = time.Second
)

// Store reads the config file. It never caches: every Load hits the disk.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store for path, or for DefaultPath when path is empty.
func NewStore(path string, log *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: ExpandHome(path), log: log}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Load reads the file, applies OTPWATCH_* environment overrides and returns
// a snapshot. The returned Config is always usable: a missing file yields
// the defaults, and a malformed one yields the defaults plus an error that
// describes what was ignored. Unknown keys are ignored.
//
// Environment keys map to config keys by lowercasing and turning "__" into
// a section separator:
//
//	OTPWATCH_AUTO_PASTE=true            -> auto_paste
//	OTPWATCH_WATCH__POLL_INTERVAL=5s    -> watch.poll_interval
func (s *Store) Load() (Config, error) {
	var errs []error
	k := koanf.New(".")

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(data), tomlParser{}); err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", s.path, err))
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		errs = append(errs, fmt.Errorf("read %s: %w", s.path, err))
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		errs = append(errs, fmt.Errorf("load environment: %w", err))
	}

	cfg := Defaults()
	// Keywords from the file replace the defaults rather than merging.
	cfg.TriggerKeywords = nil
	if err := k.Unmarshal("", &cfg); err != nil {
		errs = append(errs, fmt.Errorf("decode config: %w", err))
		cfg = Defaults()
	}

	if err := cfg.normalize(); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// WriteDefault writes a commented default config file if none exists.
// It reports whether a file was created.
func (s *Store) WriteDefault() (bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(defaultFile), 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

// Watch blocks until ctx is done, calling fn with a fresh snapshot each time
// the config file is written.
func (s *Store) Watch(ctx context.Context, fn func(Config, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory so that atomic renames by editors are seen.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(s.path)
	var timer *time.Timer
	var settle <-chan time.Time
	var pendingSince time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if settle == nil {
				pendingSince = time.Now()
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(settleDelay(time.Since(pendingSince)))
			settle = timer.C

		case <-settle:
			settle = nil
			fn(s.Load())

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

const defaultFile = `# otpwatch configuration.
# Changes are picked up on the next message; no restart needed.

# A message must contain one of these (case-sensitive) to be considered.
trigger_keywords = ["验证码", "verification", "code", "인증", "代码"]

auto_paste = false
# Only used when auto_paste is on.
auto_submit = false
recover_clipboard = false
use_confirmation_surface = false
listen_to_mail = false

# "digits" or "nearest"
selection_policy = "digits"

# state_dir = "~/.local/share/otpwatch"

[watch]
messages_db = "~/Library/Messages/chat.db"
poll_interval = "3s"
message_window = "60s"
mail_dir = "~/Library/Mail"
mail_pattern = '^[0-9]+\.emlx$'
mail_settle = "1s"
mail_max_chars = 500
mail_cooldown = "500ms"

[dispatch]
paste_delay = "100ms"
submit_delay = "100ms"
restore_delay = "3s"
dedupe_window = "2m"
# The confirm window is a terminal UI; without a terminal, wrap it:
# confirm_command = ["kitty", "--class", "otpwatch", "{exe}", "confirm", "{code}", "{source}"]

[log]
level = "info"
format = "console"
# file = "~/.local/share/otpwatch/otpwatch.log"
reveal_codes = false

[metrics]
# addr = "127.0.0.1:9479"
`

// settleDelay is how long to wait after a write, given how long a reload
// has already been pending.
func settleDelay(pending time.Duration) time.Duration {
	return max(min(watchSettle, watchMaxWait-pending), 0)
}
