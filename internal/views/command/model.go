package command

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/olivoil/otpwatch/internal/ui"
)

const (
	maxMenuRows = 10
	maxRecall   = 50
)

// ExecuteMsg is sent when a command should be executed by the parent.
type ExecuteMsg struct {
	Args []string
}

// DryRunMsg is sent when free text should be run through the detector.
type DryRunMsg struct {
	Text string
}

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Accept key.Binding
	Submit key.Binding
	Close  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		Prev:   key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Accept: key.NewBinding(key.WithKeys("tab")),
		Submit: key.NewBinding(key.WithKeys("enter")),
		Close:  key.NewBinding(key.WithKeys("esc")),
	}
}

// menu is the inline completion list. sel is -1 until the user moves.
type menu struct {
	items []Candidate
	sel   int
}

func (mu *menu) set(items []Candidate) {
	mu.items = items
	mu.sel = -1
}

func (mu *menu) reset() { mu.set(nil) }

func (mu *menu) open() bool { return len(mu.items) > 0 }

func (mu *menu) move(delta int) {
	n := len(mu.items)
	if n == 0 {
		return
	}
	if mu.sel < 0 && delta < 0 {
		mu.sel = 0
	}
	mu.sel = ((mu.sel+delta)%n + n) % n
}

// choice returns the highlighted item, or the first one when fallback is
// set and nothing is highlighted.
func (mu *menu) choice(fallback bool) (Candidate, bool) {
	switch {
	case mu.sel >= 0 && mu.sel < len(mu.items):
		return mu.items[mu.sel], true
	case fallback && len(mu.items) > 0:
		return mu.items[0], true
	}
	return Candidate{}, false
}

// Model is the command line with its completion menu and result pane.
type Model struct {
	input     textinput.Model
	result    viewport.Model
	completer *Completer
	keys      keyMap
	menu      menu
	focused   bool
	width     int
	height    int
	hasResult bool

	// recall holds previously submitted lines, oldest first.
	recall    []string
	recallPos int
}

// New creates a new command model.
func New() Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type a command, or paste a message to test it..."
	ti.CharLimit = 1024

	return Model{
		input:     ti,
		result:    viewport.New(viewport.WithWidth(80), viewport.WithHeight(10)),
		completer: NewCompleter(),
		keys:      defaultKeyMap(),
		menu:      menu{sel: -1},
	}
}

// SetSize updates dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.SetWidth(w - 4)
	m.result.SetWidth(w - 2)
	m.result.SetHeight(h - 3)
}

// SetRecords updates tab completion for history IDs.
func (m *Model) SetRecords(ids []string, desc map[string]string) {
	m.completer.SetRecords(ids, desc)
}

// SetResult shows content in the result pane.
func (m *Model) SetResult(content string) {
	m.showResult(content)
}

// SetError shows err in the result pane.
func (m *Model) SetError(err error) {
	m.showResult(ui.StyleError.Render("Error: " + err.Error()))
}

func (m *Model) showResult(content string) {
	m.hasResult = true
	m.menu.reset()
	m.result.SetContent(content)
	m.result.GotoTop()
}

// ClearResult empties the result pane.
func (m *Model) ClearResult() {
	m.hasResult = false
	m.menu.reset()
	m.result.SetContent("")
}

// Focus activates the command line and lists the top-level commands.
func (m *Model) Focus() tea.Cmd {
	m.focused = true
	m.hasResult = false
	m.recallPos = len(m.recall)
	m.refreshMenu()
	return m.input.Focus()
}

// Blur deactivates the command line.
func (m *Model) Blur() {
	m.focused = false
	m.menu.reset()
	m.input.Blur()
}

// Focused returns whether the command line has focus.
func (m *Model) Focused() bool {
	return m.focused
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	press, ok := msg.(tea.KeyPressMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(press, m.keys.Close):
		m.Blur()
		m.ClearResult()
		return m, nil

	case key.Matches(press, m.keys.Next):
		if m.menu.open() {
			m.menu.move(1)
		} else {
			m.recallStep(1)
		}
		return m, nil

	case key.Matches(press, m.keys.Prev):
		if m.menu.open() {
			m.menu.move(-1)
		} else {
			m.recallStep(-1)
		}
		return m, nil

	case key.Matches(press, m.keys.Accept):
		if c, ok := m.menu.choice(true); ok {
			m.accept(c)
		}
		return m, nil

	case key.Matches(press, m.keys.Submit):
		if c, ok := m.menu.choice(false); ok {
			m.accept(c)
			return m, nil
		}
		return m, m.submit()
	}

	// Typing replaces whatever result is showing.
	if m.hasResult {
		m.ClearResult()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshMenu()
	return m, cmd
}

// submit routes the current line and clears the input.
func (m *Model) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}
	m.remember(line)
	m.input.SetValue("")
	m.menu.reset()

	route := ParseRoute(line)
	if route.Kind == RouteCommand {
		return func() tea.Msg { return ExecuteMsg{Args: route.Args} }
	}
	return func() tea.Msg { return DryRunMsg{Text: route.Raw} }
}

func (m *Model) remember(line string) {
	if n := len(m.recall); n > 0 && m.recall[n-1] == line {
		m.recallPos = n
		return
	}
	m.recall = append(m.recall, line)
	if len(m.recall) > maxRecall {
		m.recall = m.recall[len(m.recall)-maxRecall:]
	}
	m.recallPos = len(m.recall)
}

// recallStep walks through earlier lines; stepping past the newest clears
// the input.
func (m *Model) recallStep(delta int) {
	pos := m.recallPos + delta
	if pos < 0 || pos > len(m.recall) {
		return
	}
	m.recallPos = pos
	if pos == len(m.recall) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.recall[pos])
	}
	m.input.CursorEnd()
}

// accept puts c in place of the word being typed.
func (m *Model) accept(c Candidate) {
	val := m.input.Value()
	words := strings.Fields(val)
	if len(words) == 0 || strings.HasSuffix(val, " ") {
		words = append(words, c.Value)
	} else {
		words[len(words)-1] = c.Value
	}
	m.input.SetValue(strings.Join(words, " ") + " ")
	m.input.CursorEnd()
	m.refreshMenu()
}

func (m *Model) refreshMenu() {
	if m.hasResult {
		m.menu.reset()
		return
	}
	m.menu.set(m.completer.Complete(m.input.Value()))
}

// MenuHeight returns the lines taken by the completion panel, borders
// included.
func (m Model) MenuHeight() int {
	if !m.focused || m.hasResult || !m.menu.open() {
		return 0
	}
	return min(len(m.menu.items), maxMenuRows) + 2
}

// ViewInput renders the completion panel above the input line.
func (m Model) ViewInput() string {
	if !m.focused {
		return ""
	}
	if m.hasResult || !m.menu.open() {
		return m.input.View()
	}
	return m.renderMenu() + "\n" + m.input.View()
}

// ViewResult renders the result pane, or "" when there is nothing to show.
func (m Model) ViewResult() string {
	if !m.hasResult {
		return ""
	}
	return m.result.View()
}

var (
	styleMenuPanel    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ui.ColorBorder).Padding(0, 1)
	styleMenuSelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ui.T.Background)).Background(ui.ColorAccent)
	styleMenuValue    = lipgloss.NewStyle().Foreground(ui.ColorWhite)
	styleMenuDesc     = lipgloss.NewStyle().Foreground(ui.ColorDim)
)

func (m Model) renderMenu() string {
	items := m.menu.items
	if len(items) > maxMenuRows {
		items = items[:maxMenuRows]
	}
	pad := 0
	for _, c := range items {
		pad = max(pad, len(c.Value))
	}

	lines := make([]string, len(items))
	for i, c := range items {
		value := fmt.Sprintf("%-*s", pad, c.Value)
		var desc string
		if c.Desc != "" {
			desc = "  " + c.Desc
		}
		if i == m.menu.sel {
			lines[i] = styleMenuSelected.Render(value + desc)
		} else {
			lines[i] = styleMenuValue.Render(value) + styleMenuDesc.Render(desc)
		}
	}

	return styleMenuPanel.Width(max(m.width-4, 40)).Render(strings.Join(lines, "\n"))
}
