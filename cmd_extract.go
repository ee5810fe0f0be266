package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/olivoil/otpwatch/internal/app"
	"github.com/olivoil/otpwatch/internal/otp"
	"github.com/olivoil/otpwatch/internal/source"
)

var extractJSON bool

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the result as JSON")
}

// extractCmd dry-runs the detector
var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Show which code would be extracted from text",
	Long: `Run text through the trigger and extraction steps with the current
config and print the outcome. Nothing is copied or recorded.

Files ending in .eml or .emlx are decoded as mail first.

Examples:
  # From stdin
  echo "Your verification code is 123456" | otpwatch extract

  # From a saved mail
  otpwatch extract ~/Downloads/login.eml --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

// extractResult is the --json output.
type extractResult struct {
	Triggered  bool     `json:"triggered"`
	Keyword    string   `json:"keyword,omitempty"`
	Candidates []string `json:"candidates"`
	Policy     string   `json:"policy"`
	Code       string   `json:"code,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readExtractInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to extract from")
	}

	cfg, cfgErr := newStore().Load()
	if cfgErr != nil {
		cmd.PrintErrf("warning: %v\n", cfgErr)
	}
	policy := cfg.Policy()
	res := otp.Detect(text, cfg.TriggerKeywords, policy)

	if extractJSON {
		out := extractResult{
			Triggered:  res.Triggered,
			Keyword:    res.Keyword,
			Candidates: otp.Tokens(res.Candidates),
			Policy:     string(policy),
			Code:       res.Code,
		}
		if out.Candidates == nil {
			out.Candidates = []string{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	_, err = lipgloss.Fprintln(cmd.OutOrStdout(), app.FormatDetection(res, policy))
	return err
}

func readExtractInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".eml", ".emlx":
		return source.ParseMailFile(args[0])
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}
