package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// appleEpoch is the zero point of Messages timestamps, which are stored as
// nanoseconds since 2001-01-01 UTC.
var appleEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

const latestQuery = `SELECT ROWID, text, date FROM message
WHERE date > ? AND text IS NOT NULL AND text != ''
ORDER BY date DESC LIMIT 1`

// MessageStore queries the Messages database read-only.
type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

// StoreOption customises a MessageStore.
type StoreOption func(*MessageStore)

// WithClock overrides the store's notion of "now".
func WithClock(now func() time.Time) StoreOption {
	return func(s *MessageStore) { s.now = now }
}

// OpenMessageStore opens the Messages database at path. The file is opened
// read-only; another process owns it.
func OpenMessageStore(path string, opts ...StoreOption) (*MessageStore, error) {
	dsn := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open messages db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &MessageStore{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *MessageStore) Close() error { return s.db.Close() }

// Latest returns the newest message received within window of now.
// ok is false when there is no such message.
func (s *MessageStore) Latest(ctx context.Context, window time.Duration) (msg RawMessage, ok bool, err error) {
	cutoff := ToAppleTime(s.now().Add(-window))

	var (
		rowID int64
		text  string
		date  int64
	)
	err = s.db.QueryRowContext(ctx, latestQuery, cutoff).Scan(&rowID, &text, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return RawMessage{}, false, nil
	}
	if err != nil {
		return RawMessage{}, false, fmt.Errorf("query latest message: %w", err)
	}

	return RawMessage{
		Text:       text,
		ObservedAt: FromAppleTime(date),
		Origin:     "message:" + strconv.FormatInt(rowID, 10),
	}, true, nil
}

// ToAppleTime converts t to a Messages timestamp.
func ToAppleTime(t time.Time) int64 {
	return t.Sub(appleEpoch).Nanoseconds()
}

// FromAppleTime converts a Messages timestamp to a time.Time.
func FromAppleTime(ns int64) time.Time {
	return appleEpoch.Add(time.Duration(ns))
}
