package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/logging"
	"github.com/olivoil/otpwatch/internal/metrics"
)

type fakeClipboard struct {
	mu       sync.Mutex
	content  string
	writes   []string
	readErr  error
	writeErr error
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, c.readErr
}

func (c *fakeClipboard) WriteAll(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.content = s
	c.writes = append(c.writes, s)
	return nil
}

type fakeKeyboard struct {
	calls     []string
	pasteErr  error
	submitErr error
}

func (k *fakeKeyboard) Paste(context.Context) error {
	k.calls = append(k.calls, "paste")
	return k.pasteErr
}

func (k *fakeKeyboard) Submit(context.Context) error {
	k.calls = append(k.calls, "submit")
	return k.submitErr
}

type fakeSurface struct {
	shown []Result
	err   error
}

func (s *fakeSurface) Present(_ context.Context, code, source string) error {
	s.shown = append(s.shown, Result{Code: code, Source: source})
	return s.err
}

type fakeHistory struct{ records []backend.Record }

func (h *fakeHistory) Append(r backend.Record) error {
	h.records = append(h.records, r)
	return nil
}

type harness struct {
	d       *Dispatcher
	clip    *fakeClipboard
	keys    *fakeKeyboard
	surface *fakeSurface
	history *fakeHistory
	sleeps  []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clip:    &fakeClipboard{content: "previous"},
		keys:    &fakeKeyboard{},
		surface: &fakeSurface{},
		history: &fakeHistory{},
	}
	log, _ := logging.NewObserved()
	h.d = New(
		WithClipboard(h.clip),
		WithKeyboard(h.keys),
		WithSurface(h.surface),
		WithHistory(h.history),
		WithLogger(log),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
	)
	return h
}

func baseConfig() config.Config {
	cfg := config.Defaults()
	cfg.Dispatch.DedupeWindow = 0
	return cfg
}

var res = Result{Code: "482913", Source: "Messages", Keyword: "code"}

func TestDispatch_ClipboardOnly(t *testing.T) {
	h := newHarness(t)
	out := h.d.Dispatch(context.Background(), baseConfig(), res)

	assert.Equal(t, backend.ModeClipboard, out.Mode)
	assert.NoError(t, out.Err)
	assert.Equal(t, []string{"482913"}, h.clip.writes)
	assert.Empty(t, h.keys.calls)
	assert.Empty(t, h.surface.shown)
	require.Len(t, h.history.records, 1)
	assert.Equal(t, "code", h.history.records[0].Keyword)
	assert.Equal(t, backend.ModeClipboard, h.history.records[0].Mode)
}

func TestDispatch_Paste(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.AutoPaste = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Equal(t, backend.ModePaste, out.Mode)
	assert.Equal(t, []string{"paste"}, h.keys.calls)
	assert.Equal(t, []time.Duration{cfg.Dispatch.PasteDelay}, h.sleeps)
	assert.False(t, out.Restored)
}

func TestDispatch_PasteAndSubmit(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.AutoSubmit = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Equal(t, backend.ModeSubmit, out.Mode)
	assert.Equal(t, []string{"paste", "submit"}, h.keys.calls)
	assert.Equal(t, []time.Duration{cfg.Dispatch.PasteDelay, cfg.Dispatch.SubmitDelay}, h.sleeps)
}

func TestDispatch_SubmitIgnoredWithoutPaste(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.AutoSubmit = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Equal(t, backend.ModeClipboard, out.Mode)
	assert.Empty(t, h.keys.calls)
}

func TestDispatch_ConfirmationSurfaceShortCircuits(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.UseConfirmationSurface = true
	cfg.AutoPaste = true
	cfg.AutoSubmit = true
	cfg.RecoverClipboard = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Equal(t, backend.ModeConfirm, out.Mode)
	assert.Equal(t, []Result{{Code: "482913", Source: "Messages"}}, h.surface.shown)
	assert.Empty(t, h.keys.calls)
	assert.False(t, out.Restored)
	assert.Equal(t, "482913", h.clip.content)
}

func TestDispatch_RestoreAfterPaste(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.RecoverClipboard = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.True(t, out.Restored)
	assert.Equal(t, []string{"482913", "previous"}, h.clip.writes)
	assert.Equal(t, cfg.Dispatch.RestoreDelay, h.sleeps[len(h.sleeps)-1])
}

func TestDispatch_NoRestoreWithoutPaste(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.RecoverClipboard = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.False(t, out.Restored)
	assert.Equal(t, "482913", h.clip.content)
}

func TestDispatch_KeystrokeFailureKeepsClipboard(t *testing.T) {
	h := newHarness(t)
	h.keys.pasteErr = ErrPermissionDenied
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.AutoSubmit = true
	cfg.RecoverClipboard = true

	before := testutil.ToFloat64(metrics.New().KeystrokeFailures)
	out := h.d.Dispatch(context.Background(), cfg, res)

	assert.ErrorIs(t, out.Err, ErrPermissionDenied)
	assert.Equal(t, backend.ModeClipboard, out.Mode)
	assert.Equal(t, []string{"paste"}, h.keys.calls)
	assert.False(t, out.Restored)
	assert.Equal(t, "482913", h.clip.content)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.New().KeystrokeFailures))
	require.Len(t, h.history.records, 1)
	assert.Contains(t, h.history.records[0].Error, "permission denied")
}

func TestDispatch_SubmitFailureStillRestores(t *testing.T) {
	h := newHarness(t)
	h.keys.submitErr = errors.New("boom")
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.AutoSubmit = true
	cfg.RecoverClipboard = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Error(t, out.Err)
	assert.Equal(t, backend.ModePaste, out.Mode)
	assert.True(t, out.Restored)
}

func TestDispatch_ClipboardWriteFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.clip.writeErr = errors.New("no xclip")
	cfg := baseConfig()
	cfg.AutoPaste = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.Error(t, out.Err)
	assert.Equal(t, []string{"paste"}, h.keys.calls)
}

func TestDispatch_ReadFailureSkipsRestore(t *testing.T) {
	h := newHarness(t)
	h.clip.readErr = errors.New("binary data")
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.RecoverClipboard = true

	out := h.d.Dispatch(context.Background(), cfg, res)
	assert.NoError(t, out.Err)
	assert.False(t, out.Restored)
	assert.Equal(t, []string{"482913"}, h.clip.writes)
}

func TestDispatch_DuplicateSuppressed(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.Dispatch.DedupeWindow = time.Minute

	first := h.d.Dispatch(context.Background(), cfg, res)
	second := h.d.Dispatch(context.Background(), cfg, Result{Code: "482913", Source: "Mail"})
	third := h.d.Dispatch(context.Background(), cfg, Result{Code: "111111", Source: "Mail"})

	assert.Equal(t, backend.ModeClipboard, first.Mode)
	assert.Equal(t, backend.ModeSuppressed, second.Mode)
	assert.Equal(t, backend.ModeClipboard, third.Mode)
	assert.Equal(t, []string{"482913", "111111"}, h.clip.writes)
	assert.Len(t, h.history.records, 2)
}

func TestDispatch_DuplicateWindowExpires(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.Dispatch.DedupeWindow = 50 * time.Millisecond

	h.d.Dispatch(context.Background(), cfg, res)
	assert.Eventually(t, func() bool {
		return h.d.Dispatch(context.Background(), cfg, res).Mode != backend.ModeSuppressed
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDispatch_CancelledDuringDelay(t *testing.T) {
	clip := &fakeClipboard{}
	keys := &fakeKeyboard{}
	d := New(WithClipboard(clip), WithKeyboard(keys), WithLogger(zap.NewNop()))
	cfg := baseConfig()
	cfg.AutoPaste = true
	cfg.Dispatch.PasteDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := d.Dispatch(ctx, cfg, res)

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, keys.calls)
	assert.Equal(t, "482913", clip.content)
}

func TestDispatch_LogsMaskedCode(t *testing.T) {
	log, logs := logging.NewObserved()
	d := New(WithClipboard(&fakeClipboard{}), WithKeyboard(&fakeKeyboard{}), WithLogger(log))

	d.Dispatch(context.Background(), baseConfig(), res)
	entries := logs.FilterMessage("code dispatched").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "****13", entries[0].ContextMap()["code"])
}

func TestDispatch_FailedClipboardWriteIsNotDeduped(t *testing.T) {
	h := newHarness(t)
	cfg := baseConfig()
	cfg.Dispatch.DedupeWindow = time.Minute
	res := Result{Code: "482913", Source: "Messages"}

	h.clip.writeErr = errors.New("no display")
	first := h.d.Dispatch(context.Background(), cfg, res)
	require.Error(t, first.Err)

	h.clip.writeErr = nil
	second := h.d.Dispatch(context.Background(), cfg, res)
	assert.NoError(t, second.Err)
	assert.Equal(t, backend.ModeClipboard, second.Mode)
	assert.Equal(t, "482913", h.clip.content)

	third := h.d.Dispatch(context.Background(), cfg, res)
	assert.Equal(t, backend.ModeSuppressed, third.Mode)
}
