package backend

import (
	"time"

	"github.com/google/uuid"
)

// Mode is what the dispatcher ended up doing with a code.
type Mode string

const (
	ModeClipboard  Mode = "clipboard"
	ModePaste      Mode = "paste"
	ModeSubmit     Mode = "submit"
	ModeConfirm    Mode = "confirm"
	ModeSuppressed Mode = "suppressed"
)

// Status summarizes the daemon for the dashboard header.
type Status struct {
	// Running is true when the pid file names a live process.
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
	// Mail mirrors listen_to_mail from the current config.
	Mail      bool `json:"mail"`
	AutoPaste bool `json:"auto_paste"`
	Confirm   bool `json:"confirm"`
	// Total is the number of history records.
	Total int `json:"-"`
	// Today is the count of records dispatched today.
	Today int `json:"-"`
}

// Record is one entry of history.jsonl.
type Record struct {
	ID      string `json:"id"`
	Short   string `json:"short"`
	Code    string `json:"code"`
	Source  string `json:"source"`
	Keyword string `json:"keyword,omitempty"`
	Mode    Mode   `json:"mode"`
	At      string `json:"at"`
	Error   string `json:"error,omitempty"`
}

// NewRecord stamps a fresh ID on a dispatch.
func NewRecord(code, source string, mode Mode, at time.Time) Record {
	id := uuid.NewString()
	return Record{
		ID:     id,
		Short:  id[:8],
		Code:   code,
		Source: source,
		Mode:   mode,
		At:     at.UTC().Format(time.RFC3339),
	}
}

// Time parses the At field as time.Time.
func (r Record) Time() time.Time {
	t, err := time.Parse(time.RFC3339, r.At)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Failed reports whether the dispatch logged an error.
func (r Record) Failed() bool { return r.Error != "" }

// KeywordStat is a keyword with the dispatches it triggered.
type KeywordStat struct {
	Keyword string
	Hits    int
	Last    time.Time
}
