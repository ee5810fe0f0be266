package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivoil/otpwatch/internal/config"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "****18", Mask("724818"))
	assert.Equal(t, "**", Mask("12"))
	assert.Equal(t, "", Mask(""))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "****18", Code("724818", false).String)
	assert.Equal(t, "724818", Code("724818", true).String)
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "otpwatch.log")

	log, closeFn, err := New(config.LogConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	log.Info("watcher started")
	log.Debug("hidden")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "watcher started")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewObserved(t *testing.T) {
	log, logs := NewObserved()
	log.Debug("tick")
	assert.Equal(t, 1, logs.FilterMessage("tick").Len())
}
