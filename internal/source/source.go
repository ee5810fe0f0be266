// Package source reads new text out of the two external data sources: the
// Messages SQLite store and individual mail files.
package source

import "time"

// RawMessage is one piece of newly observed text. It is consumed once by
// the pipeline and never persisted.
type RawMessage struct {
	Text       string
	ObservedAt time.Time
	// Origin identifies the row or file the text came from, for logs.
	Origin string
}
