package main

import (
	"github.com/spf13/cobra"

	"github.com/olivoil/otpwatch/internal/app"
	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/dispatch"
)

// tuiCmd opens the dashboard
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the dashboard",
	Long: `Open an interactive dashboard showing the daemon status, dispatch
history, keyword hits and the daemon log. The dashboard refreshes when
history.jsonl or the config file changes.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := backend.NewClient(newStore())
	if err != nil {
		return err
	}
	// The terminal belongs to the dashboard, so nothing is logged.
	return app.Run(cmd.Context(), app.Options{
		Client:    client,
		Clipboard: dispatch.SystemClipboard{},
		Version:   version,
	})
}
