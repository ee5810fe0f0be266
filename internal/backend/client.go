package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/olivoil/otpwatch/internal/config"
)

const (
	historyFile = "history.jsonl"
	pidFile     = "otpwatch.pid"
)

// HistoryPath returns the history file inside stateDir.
func HistoryPath(stateDir string) string { return filepath.Join(stateDir, historyFile) }

// PIDPath returns the daemon pid file inside stateDir.
func PIDPath(stateDir string) string { return filepath.Join(stateDir, pidFile) }

// ErrNotFound is returned when no history record matches an ID.
var ErrNotFound = errors.New("no such record")

// Client gives the dashboard read access to the daemon's files.
type Client struct {
	store *config.Store

	mu  sync.RWMutex
	cfg config.Config
}

// NewClient loads the config once so paths can be resolved. A broken
// config file still yields a usable client with defaults.
func NewClient(store *config.Store) (*Client, error) {
	c := &Client{store: store}
	_, err := c.Reload()
	return c, err
}

// Reload re-reads the config file.
func (c *Client) Reload() (config.Config, error) {
	cfg, err := c.store.Load()
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return cfg, err
}

// Config returns the last loaded snapshot.
func (c *Client) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Clone()
}

// ConfigPath returns the config file path.
func (c *Client) ConfigPath() string { return c.store.Path() }

// StateDir returns the resolved state directory.
func (c *Client) StateDir() string { return c.Config().StateDir }

// HistoryPath returns the path to history.jsonl.
func (c *Client) HistoryPath() string { return HistoryPath(c.StateDir()) }

// PIDPath returns the path to the daemon pid file.
func (c *Client) PIDPath() string { return PIDPath(c.StateDir()) }

// LogPath returns the daemon log file.
func (c *Client) LogPath() string { return c.Config().Log.File }

// ReadHistory reads and deduplicates records from history.jsonl.
func (c *Client) ReadHistory() ([]Record, error) {
	return ParseHistoryFile(c.HistoryPath())
}

// ReadLog returns the last n lines of the daemon log.
func (c *Client) ReadLog(n int) ([]string, error) {
	return TailFile(c.LogPath(), n)
}

// Find returns the newest record whose short or full ID starts with id.
func (c *Client) Find(id string) (Record, error) {
	records, err := c.ReadHistory()
	if err != nil {
		return Record{}, err
	}
	return FindRecord(records, id)
}

// FindRecord looks id up in records (newest first).
func FindRecord(records []Record, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	for _, r := range records {
		if r.Short == id || strings.HasPrefix(r.ID, id) {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Status reports daemon liveness and the current toggles.
func (c *Client) Status() Status {
	cfg := c.Config()
	s := Status{
		Mail:      cfg.ListenToMail,
		AutoPaste: cfg.AutoPaste,
		Confirm:   cfg.UseConfirmationSurface,
	}
	s.PID, s.Running = RunningPID(PIDPath(cfg.StateDir))
	return s
}

// DeriveStats computes Total and Today from records and merges into status.
func DeriveStats(status Status, records []Record) Status {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	status.Total = len(records)
	status.Today = 0
	for _, r := range records {
		if t := r.Time(); !t.IsZero() && !t.Before(todayStart) {
			status.Today++
		}
	}
	return status
}
