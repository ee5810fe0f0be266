package ui

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ThemeEnv overrides the location of the colors.toml file.
const ThemeEnv = "OTPWATCH_THEME"

// T is the palette every view renders with, resolved once at startup.
var T = LoadTheme()

// Theme is a resolved palette of hex colors.
type Theme struct {
	Foreground          string
	Background          string
	Accent              string
	SelectionForeground string
	Dim                 string
	Red                 string
	Green               string
	Yellow              string
	Blue                string
	Border              string
	BrightWhite         string
}

func defaultTheme() Theme {
	return Theme{
		Foreground:          "#e5e7eb",
		Background:          "#1a1b26",
		Accent:              "#8b5cf6",
		SelectionForeground: "#e5e7eb",
		Dim:                 "#6b7280",
		Red:                 "#ef4444",
		Green:               "#22c55e",
		Yellow:              "#eab308",
		Blue:                "#3b82f6",
		Border:              "#374151",
		BrightWhite:         "#f9fafb",
	}
}

// slots maps colors.toml keys (Omarchy's terminal palette layout) onto
// theme fields. Keys not listed here are ignored.
func (t *Theme) slots() map[string]*string {
	return map[string]*string{
		"foreground":           &t.Foreground,
		"background":           &t.Background,
		"accent":               &t.Accent,
		"selection_foreground": &t.SelectionForeground,
		"color0":               &t.Dim,
		"color1":               &t.Red,
		"color2":               &t.Green,
		"color3":               &t.Yellow,
		"color4":               &t.Blue,
		"color8":               &t.Border,
		"color15":              &t.BrightWhite,
	}
}

// LoadTheme reads $OTPWATCH_THEME, else the active Omarchy theme.
func LoadTheme() Theme {
	path := os.Getenv(ThemeEnv)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultTheme()
		}
		path = filepath.Join(home, ".config", "omarchy", "current", "theme", "colors.toml")
	}
	return LoadThemeFile(path)
}

// LoadThemeFile overlays the colors set in path on the built-in palette.
// An unreadable file yields the built-in palette.
func LoadThemeFile(path string) Theme {
	t := defaultTheme()

	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return t
	}
	for k, dst := range t.slots() {
		if v, ok := raw[k].(string); ok && v != "" {
			*dst = v
		}
	}
	return t
}
