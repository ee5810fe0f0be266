package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Surface presents a code to the user for approval instead of pasting it
// unattended.
type Surface interface {
	Present(ctx context.Context, code, source string) error
}

// DefaultConfirmCommand launches this binary's confirm subcommand.
var DefaultConfirmCommand = []string{"{exe}", "confirm", "{code}", "{source}"}

// ProcessSurface starts a separate process per code. The process outlives
// the call; Present only waits for it to start.
type ProcessSurface struct {
	// Command is an argv template; see DefaultConfirmCommand.
	Command []string
	// Exe replaces {exe}. Empty means os.Executable.
	Exe string

	start func(cmd *exec.Cmd) error
}

func (s ProcessSurface) Present(_ context.Context, code, source string) error {
	exe := s.Exe
	if exe == "" {
		p, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		exe = p
	}
	argv := ExpandCommand(s.Command, exe, code, source)

	// Not CommandContext: the window must survive the dispatch.
	cmd := exec.Command(argv[0], argv[1:]...)
	start := s.start
	if start == nil {
		start = startDetached
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	return nil
}

// ExpandCommand substitutes {exe}, {code} and {source} in tmpl. An empty
// template expands DefaultConfirmCommand.
func ExpandCommand(tmpl []string, exe, code, source string) []string {
	if len(tmpl) == 0 {
		tmpl = DefaultConfirmCommand
	}
	r := strings.NewReplacer("{exe}", exe, "{code}", code, "{source}", source)
	argv := make([]string, len(tmpl))
	for i, a := range tmpl {
		argv[i] = r.Replace(a)
	}
	return argv
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
