// Package config owns the otpwatch configuration file.
//
// The watchers never cache a Config: they call Store.Load at the start of
// every Match step and use the returned value for the whole decision.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/olivoil/otpwatch/internal/otp"
)

// Config is one immutable snapshot of the user's settings.
type Config struct {
	TriggerKeywords        []string `koanf:"trigger_keywords" toml:"trigger_keywords"`
	AutoPaste              bool     `koanf:"auto_paste" toml:"auto_paste"`
	AutoSubmit             bool     `koanf:"auto_submit" toml:"auto_submit"`
	RecoverClipboard       bool     `koanf:"recover_clipboard" toml:"recover_clipboard"`
	UseConfirmationSurface bool     `koanf:"use_confirmation_surface" toml:"use_confirmation_surface"`
	ListenToMail           bool     `koanf:"listen_to_mail" toml:"listen_to_mail"`
	SelectionPolicy        string   `koanf:"selection_policy" toml:"selection_policy"`
	StateDir               string   `koanf:"state_dir" toml:"state_dir"`

	Watch    WatchConfig    `koanf:"watch" toml:"watch"`
	Dispatch DispatchConfig `koanf:"dispatch" toml:"dispatch"`
	Log      LogConfig      `koanf:"log" toml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" toml:"metrics"`
}

// WatchConfig tunes the two change watchers.
type WatchConfig struct {
	MessagesDB    string        `koanf:"messages_db" toml:"messages_db"`
	PollInterval  time.Duration `koanf:"poll_interval" toml:"poll_interval"`
	MessageWindow time.Duration `koanf:"message_window" toml:"message_window"`
	MailDir       string        `koanf:"mail_dir" toml:"mail_dir"`
	MailPattern   string        `koanf:"mail_pattern" toml:"mail_pattern"`
	MailSettle    time.Duration `koanf:"mail_settle" toml:"mail_settle"`
	MailMaxChars  int           `koanf:"mail_max_chars" toml:"mail_max_chars"`
	MailCooldown  time.Duration `koanf:"mail_cooldown" toml:"mail_cooldown"`
}

// DispatchConfig tunes keystroke and clipboard timings.
type DispatchConfig struct {
	PasteDelay   time.Duration `koanf:"paste_delay" toml:"paste_delay"`
	SubmitDelay  time.Duration `koanf:"submit_delay" toml:"submit_delay"`
	RestoreDelay time.Duration `koanf:"restore_delay" toml:"restore_delay"`
	DedupeWindow time.Duration `koanf:"dedupe_window" toml:"dedupe_window"`
	// ConfirmCommand is an argv template; {exe}, {code} and {source} are
	// substituted before launch. Empty means "{exe} confirm {code} {source}".
	ConfirmCommand []string `koanf:"confirm_command" toml:"confirm_command"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `koanf:"level" toml:"level"`
	Format      string `koanf:"format" toml:"format"`
	File        string `koanf:"file" toml:"file"`
	RevealCodes bool   `koanf:"reveal_codes" toml:"reveal_codes"`
}

// MetricsConfig controls the optional prometheus endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
}

// Defaults returns the built-in configuration. Every call returns fresh
// slices.
func Defaults() Config {
	return Config{
		TriggerKeywords: slices.Clone(otp.DefaultKeywords),
		SelectionPolicy: string(otp.PolicyDigits),
		StateDir:        "~/.local/share/otpwatch",
		Watch: WatchConfig{
			MessagesDB:    "~/Library/Messages/chat.db",
			PollInterval:  3 * time.Second,
			MessageWindow: 60 * time.Second,
			MailDir:       "~/Library/Mail",
			MailPattern:   `^[0-9]+\.emlx$`,
			MailSettle:    time.Second,
			MailMaxChars:  500,
			MailCooldown:  500 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			PasteDelay:   100 * time.Millisecond,
			SubmitDelay:  100 * time.Millisecond,
			RestoreDelay: 3 * time.Second,
			DedupeWindow: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Policy returns the parsed selection policy.
func (c Config) Policy() otp.Policy {
	p, _ := otp.ParsePolicy(c.SelectionPolicy)
	return p
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.TriggerKeywords = slices.Clone(c.TriggerKeywords)
	c.Dispatch.ConfirmCommand = slices.Clone(c.Dispatch.ConfirmCommand)
	return c
}

// normalize repairs c in place so it is always usable and returns what it
// had to fix.
func (c *Config) normalize() error {
	var errs []error
	def := Defaults()

	c.TriggerKeywords = dedupeKeywords(c.TriggerKeywords)
	if len(c.TriggerKeywords) == 0 {
		c.TriggerKeywords = def.TriggerKeywords
	}

	if _, err := otp.ParsePolicy(c.SelectionPolicy); err != nil {
		errs = append(errs, err)
		c.SelectionPolicy = def.SelectionPolicy
	}

	positive := []struct {
		name string
		val  *time.Duration
		def  time.Duration
	}{
		{"watch.poll_interval", &c.Watch.PollInterval, def.Watch.PollInterval},
		{"watch.message_window", &c.Watch.MessageWindow, def.Watch.MessageWindow},
	}
	for _, p := range positive {
		if *p.val <= 0 {
			if *p.val < 0 {
				errs = append(errs, fmt.Errorf("%s must be positive, got %s", p.name, *p.val))
			}
			*p.val = p.def
		}
	}
	if c.Watch.MailMaxChars <= 0 {
		c.Watch.MailMaxChars = def.Watch.MailMaxChars
	}
	if c.Watch.MailPattern == "" {
		c.Watch.MailPattern = def.Watch.MailPattern
	}

	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	c.StateDir = ExpandHome(c.StateDir)
	c.Watch.MessagesDB = ExpandHome(c.Watch.MessagesDB)
	c.Watch.MailDir = ExpandHome(c.Watch.MailDir)
	c.Log.File = ExpandHome(c.Log.File)
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.StateDir, AppName+".log")
	}

	return errors.Join(errs...)
}

func dedupeKeywords(in []string) []string {
	var out []string
	for _, kw := range in {
		if kw == "" || slices.Contains(out, kw) {
			continue
		}
		out = append(out, kw)
	}
	return out
}
