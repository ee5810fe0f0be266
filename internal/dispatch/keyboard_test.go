package dispatch

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyboardFor(t *testing.T) {
	mac := keyboardFor("darwin")
	assert.Equal(t, "osascript", mac.PasteArgv[0])
	assert.Contains(t, mac.SubmitArgv[2], "key code 36")

	linux := keyboardFor("linux")
	assert.Equal(t, []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"}, linux.PasteArgv)

	win := keyboardFor("windows")
	assert.ErrorIs(t, win.Paste(context.Background()), ErrUnsupportedPlatform)
	assert.ErrorIs(t, win.Submit(context.Background()), ErrUnsupportedPlatform)
}

func TestCommandKeyboard_MissingHelper(t *testing.T) {
	k := &CommandKeyboard{PasteArgv: []string{"definitely-not-a-real-binary-otpwatch"}}
	assert.ErrorIs(t, k.Paste(context.Background()), ErrUnsupportedPlatform)
}

func TestCommandKeyboard_PermissionDenied(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh")
	}
	k := &CommandKeyboard{
		PasteArgv: []string{sh},
		run: func(context.Context, []string) ([]byte, error) {
			return []byte(`execution error: System Events got an error: osascript is not allowed to send keystrokes. (1002)`), errors.New("exit status 1")
		},
	}
	err = k.Paste(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCommandKeyboard_OtherFailure(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh")
	}
	k := &CommandKeyboard{SubmitArgv: []string{sh, "-c", "echo nope >&2; exit 3"}}
	err = k.Submit(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "nope")
}
