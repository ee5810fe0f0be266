package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/dispatch"
	"github.com/olivoil/otpwatch/internal/views/confirm"
)

var confirmTimeout time.Duration

func init() {
	confirmCmd.Flags().DurationVar(&confirmTimeout, "timeout", confirm.DefaultTimeout, "dismiss after this long")
}

// confirmCmd is the confirmation surface started by the dispatcher
var confirmCmd = &cobra.Command{
	Use:   "confirm <code> <source>",
	Short: "Ask before pasting a code",
	Long: `Show a code and where it came from, then paste and submit it (enter),
copy it (c) or dismiss (esc). The dispatcher starts this through
dispatch.confirm_command when use_confirmation_surface is set.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfirm,
}

func runConfirm(cmd *cobra.Command, args []string) error {
	cfg, _ := newStore().Load()
	actions := &confirmActions{
		clip: dispatch.SystemClipboard{},
		keys: dispatch.NewKeyboard(),
		cfg:  cfg.Dispatch,
	}
	choice, err := confirm.Run(cmd.Context(), args[0], args[1], confirmTimeout, actions)
	if err != nil {
		return fmt.Errorf("%s: %w", choice, err)
	}
	return nil
}

// confirmActions carries out the confirm window's choice with the same
// clipboard and keystroke backends the dispatcher uses.
type confirmActions struct {
	clip dispatch.Clipboard
	keys dispatch.Keyboard
	cfg  config.DispatchConfig
}

func (a *confirmActions) Copy(code string) error {
	return a.clip.WriteAll(code)
}

func (a *confirmActions) PasteAndSubmit(ctx context.Context, code string) error {
	if err := sleep(ctx, a.cfg.PasteDelay); err != nil {
		return err
	}
	if err := a.keys.Paste(ctx); err != nil {
		return err
	}
	if err := sleep(ctx, a.cfg.SubmitDelay); err != nil {
		return err
	}
	return a.keys.Submit(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
