package ui

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/olivoil/otpwatch/internal/backend"
)

var (
	ColorGreen  = lipgloss.Color(T.Green)
	ColorRed    = lipgloss.Color(T.Red)
	ColorYellow = lipgloss.Color(T.Yellow)
	ColorBlue   = lipgloss.Color(T.Blue)
	ColorDim    = lipgloss.Color(T.Dim)
	ColorWhite  = lipgloss.Color(T.Foreground)
	ColorBorder = lipgloss.Color(T.Border)
	ColorAccent = lipgloss.Color(T.Accent)
	ColorHeader = lipgloss.Color(T.BrightWhite)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeader)

	StyleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)

	StyleInactive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	StyleDim = lipgloss.NewStyle().
			Foreground(ColorDim)

	StyleAccent = lipgloss.NewStyle().
			Foreground(ColorAccent)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorRed)

	StyleCode = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent)

	StylePreviewBorder = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(ColorBorder).
				PaddingLeft(1)
)

// ModeIcon returns an icon for what a dispatch did.
func ModeIcon(mode backend.Mode, failed bool) string {
	if failed {
		return lipgloss.NewStyle().Foreground(ColorRed).Render("✗")
	}
	switch mode {
	case backend.ModeSubmit:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render("⏎")
	case backend.ModePaste:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render("✓")
	case backend.ModeConfirm:
		return lipgloss.NewStyle().Foreground(ColorYellow).Render("?")
	case backend.ModeClipboard:
		return lipgloss.NewStyle().Foreground(ColorBlue).Render("⧉")
	default:
		return " "
	}
}

// OnOff renders a toggle.
func OnOff(name string, on bool) string {
	if on {
		return StyleDim.Render(name+": ") + StyleActive.Render("on")
	}
	return StyleDim.Render(name+": ") + StyleDim.Render("off")
}

// FormatAgo formats the time since t, e.g. "42s", "5m", "3h", "2d".
func FormatAgo(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// FormatTime formats an ISO 8601 timestamp into a short time string.
func FormatTime(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	now := time.Now()
	t = t.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 02")
}
