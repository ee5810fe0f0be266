package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the config and state directories.
const AppName = "otpwatch"

// DefaultPath returns the default config file path.
func DefaultPath() string {
	if p := os.Getenv("OTPWATCH_CONFIG"); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName, "config.toml")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
