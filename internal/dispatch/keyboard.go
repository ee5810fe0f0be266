package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var (
	// ErrPermissionDenied means the OS refused synthetic keystrokes, usually
	// because the accessibility permission has not been granted.
	ErrPermissionDenied = errors.New("keystroke permission denied")
	// ErrUnsupportedPlatform means no keystroke backend exists here.
	ErrUnsupportedPlatform = errors.New("keystroke simulation not supported on this platform")
)

// Keyboard simulates the two keystrokes the dispatcher needs.
type Keyboard interface {
	Paste(ctx context.Context) error
	Submit(ctx context.Context) error
}

type runFunc func(ctx context.Context, argv []string) (stderr []byte, err error)

// CommandKeyboard sends keystrokes by running a helper program.
type CommandKeyboard struct {
	PasteArgv  []string
	SubmitArgv []string

	run runFunc
}

// NewKeyboard returns the keystroke backend for the running OS: osascript
// on macOS, xdotool on Linux. Other platforms get a keyboard that always
// fails with ErrUnsupportedPlatform.
func NewKeyboard() *CommandKeyboard {
	return keyboardFor(runtime.GOOS)
}

func keyboardFor(goos string) *CommandKeyboard {
	k := &CommandKeyboard{run: runCommand}
	switch goos {
	case "darwin":
		k.PasteArgv = []string{"osascript", "-e", `tell application "System Events" to keystroke "v" using command down`}
		k.SubmitArgv = []string{"osascript", "-e", `tell application "System Events" to key code 36`}
	case "linux", "freebsd", "openbsd":
		k.PasteArgv = []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"}
		k.SubmitArgv = []string{"xdotool", "key", "--clearmodifiers", "Return"}
	}
	return k
}

func (k *CommandKeyboard) Paste(ctx context.Context) error {
	return k.send(ctx, "paste", k.PasteArgv)
}

func (k *CommandKeyboard) Submit(ctx context.Context) error {
	return k.send(ctx, "submit", k.SubmitArgv)
}

func (k *CommandKeyboard) send(ctx context.Context, what string, argv []string) error {
	if len(argv) == 0 {
		return ErrUnsupportedPlatform
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return fmt.Errorf("%s: %w: %s not found", what, ErrUnsupportedPlatform, argv[0])
	}
	run := k.run
	if run == nil {
		run = runCommand
	}
	stderr, err := run(ctx, argv)
	if err != nil {
		return fmt.Errorf("%s: %w", what, classify(err, stderr))
	}
	return nil
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// permissionMarkers are fragments osascript prints when System Events
// rejects the request.
var permissionMarkers = []string{
	"not allowed to send keystrokes",
	"not allowed assistive access",
	"(1002)",
	"(-1743)",
	"(-25211)",
}

func classify(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	for _, m := range permissionMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}
	if msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}
