package logview

import (
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"github.com/olivoil/otpwatch/internal/ui"
)

// Model is the full-screen daemon log viewer.
type Model struct {
	viewport viewport.Model
	path     string
	width    int
	height   int
	active   bool
}

// New creates a new log view model.
func New() Model {
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(24))
	return Model{
		viewport: vp,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.SetWidth(w - 2)
	m.viewport.SetHeight(h)
}

// Show opens the log view on path, scrolled to the end.
func (m *Model) Show(path string, lines []string) {
	m.path = path
	m.active = true
	m.setContent(lines)
	m.viewport.GotoBottom()
}

// UpdateLog refreshes the log content (for live tail).
func (m *Model) UpdateLog(lines []string) {
	if !m.active {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.setContent(lines)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// Hide closes the log view.
func (m *Model) Hide() {
	m.active = false
	m.path = ""
}

// Active returns whether the log view is visible.
func (m *Model) Active() bool {
	return m.active
}

// Path returns the file being viewed.
func (m *Model) Path() string {
	return m.path
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the log view.
func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) setContent(lines []string) {
	var b strings.Builder

	b.WriteString(ui.StyleAccent.Render(m.path) + "\n")
	b.WriteString(ui.StyleDim.Render("────────────────────────────────────────") + "\n\n")

	if len(lines) == 0 {
		b.WriteString(ui.StyleDim.Render("(no log data)"))
	}
	for _, l := range lines {
		b.WriteString(colorize(l))
		b.WriteByte('\n')
	}

	m.viewport.SetContent(b.String())
}

// colorize highlights the level column of a zap console line.
func colorize(line string) string {
	switch {
	case strings.Contains(line, "\tERROR\t"):
		return ui.StyleError.Render(line)
	case strings.Contains(line, "\tWARN\t"):
		return ui.StyleAccent.Render(line)
	case strings.Contains(line, "\tDEBUG\t"):
		return ui.StyleDim.Render(line)
	}
	return line
}
