// Package confirm is the small window that asks the user what to do with
// a detected code.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/olivoil/otpwatch/internal/ui"
)

// DefaultTimeout dismisses the window when the user does nothing.
const DefaultTimeout = 30 * time.Second

// Choice is what the user picked.
type Choice int

const (
	ChoiceDismiss Choice = iota
	ChoiceCopy
	ChoicePaste
)

func (c Choice) String() string {
	switch c {
	case ChoiceCopy:
		return "copy"
	case ChoicePaste:
		return "paste"
	}
	return "dismiss"
}

// Actions performs the user's choice once the window has closed, so
// keystrokes reach the application that had focus before.
type Actions interface {
	Copy(code string) error
	PasteAndSubmit(ctx context.Context, code string) error
}

type keyMap struct {
	Paste   key.Binding
	Copy    key.Binding
	Dismiss key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Paste: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "paste"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy only"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", "dismiss"),
		),
	}
}

type tickMsg time.Time

// Model is the confirmation window.
type Model struct {
	code     string
	source   string
	keys     keyMap
	deadline time.Time
	now      time.Time
	choice   Choice
	width    int
}

// New creates the window for one code.
func New(code, source string, timeout time.Duration) Model {
	now := time.Now()
	return Model{
		code:     code,
		source:   source,
		keys:     defaultKeyMap(),
		deadline: now.Add(timeout),
		now:      now,
	}
}

// Choice returns what the user picked; ChoiceDismiss until a key is hit.
func (m Model) Choice() Choice { return m.choice }

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if !m.now.Before(m.deadline) {
			m.choice = ChoiceDismiss
			return m, tea.Quit
		}
		return m, tick()

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Paste):
			m.choice = ChoicePaste
			return m, tea.Quit
		case key.Matches(msg, m.keys.Copy):
			m.choice = ChoiceCopy
			return m, tea.Quit
		case key.Matches(msg, m.keys.Dismiss):
			m.choice = ChoiceDismiss
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() tea.View {
	var b strings.Builder
	b.WriteString(ui.StyleHeader.Render(" verification code ") + ui.StyleDim.Render("from "+m.source))
	b.WriteString("\n\n")
	b.WriteString(ui.StyleCode.Render(spaced(m.code)))
	b.WriteString("\n\n")

	left := m.deadline.Sub(m.now).Round(time.Second)
	if left < 0 {
		left = 0
	}
	help := []string{
		m.keys.Paste.Help().Key + " " + m.keys.Paste.Help().Desc,
		m.keys.Copy.Help().Key + " " + m.keys.Copy.Help().Desc,
		m.keys.Dismiss.Help().Key + " " + m.keys.Dismiss.Help().Desc,
	}
	b.WriteString(ui.StyleDim.Render(strings.Join(help, "  │  ")))
	b.WriteString("\n")
	b.WriteString(ui.StyleDim.Render(fmt.Sprintf("closes in %s", left)))

	v := tea.NewView(lipgloss.NewStyle().Padding(1, 2).Render(b.String()))
	return v
}

// spaced puts a thin gap between characters for readability.
func spaced(code string) string {
	return strings.Join(strings.Split(code, ""), " ")
}

// Run shows the window, then carries out the choice.
func Run(ctx context.Context, code, source string, timeout time.Duration, actions Actions) (Choice, error) {
	final, err := tea.NewProgram(New(code, source, timeout), tea.WithContext(ctx)).Run()
	if err != nil {
		return ChoiceDismiss, err
	}
	choice := final.(Model).Choice()
	return choice, Apply(ctx, choice, code, actions)
}

// Apply carries out choice.
func Apply(ctx context.Context, choice Choice, code string, actions Actions) error {
	switch choice {
	case ChoiceCopy:
		return actions.Copy(code)
	case ChoicePaste:
		if err := actions.Copy(code); err != nil {
			return err
		}
		return actions.PasteAndSubmit(ctx, code)
	}
	return nil
}
