package app

import "github.com/olivoil/otpwatch/internal/backend"

// StatusLoadedMsg is sent when daemon status is fetched.
type StatusLoadedMsg struct {
	Status backend.Status
}

// HistoryLoadedMsg is sent when history.jsonl has been read.
type HistoryLoadedMsg struct {
	Records []backend.Record
	Err     error
}

// ConfigLoadedMsg is sent after the config file has been re-read.
type ConfigLoadedMsg struct {
	Keywords []string
	Err      error
}

// LogLoadedMsg is sent when the daemon log tail is loaded.
type LogLoadedMsg struct {
	Path  string
	Lines []string
	Err   error
}

// ActionResultMsg is sent when a command completes.
type ActionResultMsg struct {
	Output string
	Err    error
}

// StatusTickMsg triggers a periodic status refresh.
type StatusTickMsg struct{}
