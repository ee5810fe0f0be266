package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// HistoryWriter appends records to history.jsonl. It is safe for
// concurrent use by both watchers.
type HistoryWriter struct {
	path string
	mu   sync.Mutex
}

// NewHistoryWriter returns a writer for path. The file and its directory
// are created on first append.
func NewHistoryWriter(path string) *HistoryWriter {
	return &HistoryWriter{path: path}
}

// Path returns the history file path.
func (w *HistoryWriter) Path() string { return w.path }

// Append writes rec as one JSON line.
func (w *HistoryWriter) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	return f.Close()
}
