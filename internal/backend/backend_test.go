package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/config"
)

func TestParseHistory_LastWriteWinsNewestFirst(t *testing.T) {
	in := strings.Join([]string{
		`{"id":"a","short":"a","code":"111111","source":"Messages","mode":"clipboard","at":"2024-05-01T10:00:00Z"}`,
		`not json`,
		``,
		`{"short":"no-id"}`,
		`{"id":"b","short":"b","code":"222222","source":"Mail","mode":"paste","at":"2024-05-01T10:01:00Z"}`,
		`{"id":"a","short":"a","code":"111111","source":"Messages","mode":"clipboard","at":"2024-05-01T10:00:00Z","error":"late"}`,
	}, "\n")

	records, err := ParseHistory(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "a", records[1].ID)
	assert.Equal(t, "late", records[1].Error)
	assert.True(t, records[1].Failed())
}

func TestParseHistoryFile_Missing(t *testing.T) {
	records, err := ParseHistoryFile(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistoryWriter_ConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", historyFile)
	w := NewHistoryWriter(path)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := NewRecord(fmt.Sprintf("%06d", i), "Messages", ModeClipboard, time.Now())
			assert.NoError(t, w.Append(rec))
		}()
	}
	wg.Wait()

	records, err := ParseHistoryFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 20)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	r := NewRecord("482913", "Mail", ModeConfirm, at)
	assert.Len(t, r.ID, 36)
	assert.Equal(t, r.ID[:8], r.Short)
	assert.Equal(t, "2024-05-01T11:00:00Z", r.At)
	assert.True(t, r.Time().Equal(at))
}

func TestFindRecord(t *testing.T) {
	records := []Record{
		{ID: "abcdef01-0000", Short: "abcdef01", Code: "2"},
		{ID: "abcdef01-1111", Short: "abcdef01", Code: "1"},
		{ID: "12345678-9999", Short: "12345678", Code: "3"},
	}

	r, err := FindRecord(records, "abcdef01")
	require.NoError(t, err)
	assert.Equal(t, "2", r.Code)

	r, err = FindRecord(records, "1234")
	require.NoError(t, err)
	assert.Equal(t, "3", r.Code)

	_, err = FindRecord(records, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = FindRecord(records, " ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	var lines []string
	for i := range 10 {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	got, err := TailFile(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 7", "line 8", "line 9"}, got)

	got, err = TailFile(path, 50)
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	got, err = TailFile(filepath.Join(t.TempDir(), "missing"), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeywordStats(t *testing.T) {
	records := []Record{
		{Keyword: "code", At: "2024-05-01T10:00:00Z"},
		{Keyword: "code", At: "2024-05-02T10:00:00Z"},
		{Keyword: "验证码", At: "2024-05-01T09:00:00Z"},
		{Keyword: "removed", At: "2024-05-01T09:00:00Z"},
	}
	stats := KeywordStats([]string{"验证码", "code", "인증"}, records)
	require.Len(t, stats, 3)
	assert.Equal(t, "验证码", stats[0].Keyword)
	assert.Equal(t, 1, stats[0].Hits)
	assert.Equal(t, 2, stats[1].Hits)
	assert.True(t, stats[1].Last.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)))
	assert.Zero(t, stats[2].Hits)
}

func TestDeriveStats(t *testing.T) {
	records := []Record{
		NewRecord("1111", "Messages", ModePaste, time.Now()),
		NewRecord("2222", "Mail", ModePaste, time.Now().Add(-48*time.Hour)),
	}
	s := DeriveStats(Status{Today: 9}, records)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Today)
}

func TestPIDFile(t *testing.T) {
	path := PIDPath(t.TempDir())

	_, ok := RunningPID(path)
	assert.False(t, ok)

	require.NoError(t, WritePIDFile(path))
	pid, ok := RunningPID(path)
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, RemovePIDFile(path))
	assert.NoFileExists(t, path)
}

func TestRemovePIDFile_OtherProcess(t *testing.T) {
	path := PIDPath(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o600))
	require.NoError(t, RemovePIDFile(path))
	assert.FileExists(t, path)
}

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0o700))
	state := filepath.Join(dir, "state")
	require.NoError(t, os.WriteFile(cfgPath, []byte("state_dir = '"+state+"'\n"), 0o600))

	c, err := NewClient(config.NewStore(cfgPath, zap.NewNop()))
	require.NoError(t, err)
	return c
}

func TestClient_Paths(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, filepath.Join(c.StateDir(), "history.jsonl"), c.HistoryPath())
	assert.Equal(t, filepath.Join(c.StateDir(), "otpwatch.log"), c.LogPath())
	assert.False(t, c.Status().Running)
}

func TestWatcher_History(t *testing.T) {
	c := newTestClient(t)
	sent := make(chanSender, 16)
	w, err := NewWatcher(c, sent, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, NewHistoryWriter(c.HistoryPath()).Append(NewRecord("1234", "Mail", ModeClipboard, time.Now())))

	select {
	case msg := <-sent:
		wm, ok := msg.(WatchMsg)
		require.True(t, ok)
		assert.Equal(t, WatchHistory, wm.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no history event")
	}
}

func TestWatcher_LogFollow(t *testing.T) {
	c := newTestClient(t)
	sent := make(chanSender, 16)
	w, err := NewWatcher(c, sent, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	w.WatchLog(c.LogPath())
	require.NoError(t, os.WriteFile(c.LogPath(), []byte("hello\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-sent:
			if wm, ok := msg.(WatchMsg); ok && wm.Kind == WatchLog {
				return
			}
		case <-deadline:
			t.Fatal("no log event")
		}
	}
}
