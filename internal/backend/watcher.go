package backend

import (
	"os"
	"path/filepath"
	"sync"

	tea "charm.land/bubbletea/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchMsg is sent when a watched file changes.
type WatchMsg struct {
	// Path is the file that changed.
	Path string
	// Kind distinguishes history, log and config updates.
	Kind WatchKind
}

// WatchKind identifies the type of file change.
type WatchKind int

const (
	WatchHistory WatchKind = iota
	WatchLog
	WatchConfig
)

// Sender can receive messages (matches *tea.Program).
type Sender interface {
	Send(msg tea.Msg)
}

// Watcher monitors history.jsonl, the config file and optionally the
// daemon log via fsnotify.
type Watcher struct {
	w       *fsnotify.Watcher
	sender  Sender
	log     *zap.Logger
	history string
	config  string

	mu      sync.Mutex
	logFile string // currently watched log file (if any)
	dirs    map[string]int
}

// NewWatcher creates a file watcher for the client's history and config.
func NewWatcher(client *Client, sender Sender, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &Watcher{
		w:       fw,
		sender:  sender,
		log:     log,
		history: filepath.Clean(client.HistoryPath()),
		config:  filepath.Clean(client.ConfigPath()),
		dirs:    make(map[string]int),
	}

	// Watch the directories (to catch creates + writes + atomic renames).
	for _, p := range []string{watcher.history, watcher.config} {
		if err := watcher.addDir(filepath.Dir(p)); err != nil {
			fw.Close()
			return nil, err
		}
	}

	go watcher.loop()
	return watcher, nil
}

// WatchLog starts watching a log file for live tail. An empty path stops.
func (w *Watcher) WatchLog(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.logFile != "" {
		w.removeDirLocked(filepath.Dir(w.logFile))
		w.logFile = ""
	}
	if path == "" {
		return
	}

	path = filepath.Clean(path)
	if err := w.addDirLocked(filepath.Dir(path)); err != nil {
		w.log.Warn("watch log dir", zap.String("path", path), zap.Error(err))
		return
	}
	w.logFile = path
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.w.Close()
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addDirLocked(dir)
}

// addDirLocked refcounts directories so the history, config and log files
// can share one.
func (w *Watcher) addDirLocked(dir string) error {
	if w.dirs[dir] > 0 {
		w.dirs[dir]++
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.w.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = 1
	return nil
}

func (w *Watcher) removeDirLocked(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	_ = w.w.Remove(dir)
}

func (w *Watcher) classify(name string) (WatchKind, bool) {
	name = filepath.Clean(name)
	switch name {
	case w.history:
		return WatchHistory, true
	case w.config:
		return WatchConfig, true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logFile != "" && name == w.logFile {
		return WatchLog, true
	}
	return 0, false
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if kind, ok := w.classify(event.Name); ok {
				w.sender.Send(WatchMsg{Path: event.Name, Kind: kind})
			}

		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}
