// Package main implements otpwatch, a daemon that copies one-time codes from
// incoming messages and mail to the clipboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/olivoil/otpwatch/internal/app"
	"github.com/olivoil/otpwatch/internal/config"
)

var (
	// configPath overrides the default config location.
	configPath string
	// version is set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   app.AppName,
	Short: "Copy one-time codes from messages and mail to the clipboard",
	Long: `otpwatch watches the local message database and mail store for
verification messages, extracts the one-time code and puts it on the
clipboard. It can optionally paste and submit it, or ask first.

Examples:
  # Start watching
  otpwatch run

  # Open the dashboard
  otpwatch tui

  # Check what would be extracted from some text
  echo "Your verification code is 123456" | otpwatch extract -`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(configCmd)
}

// newStore opens the config store selected by --config.
func newStore() *config.Store {
	return config.NewStore(configPath, nil)
}
