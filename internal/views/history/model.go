package history

import (
	"strings"

	"charm.land/bubbles/v2/table"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/ui"
)

const (
	previewWidthFrac = 0.40
	minPreviewWidth  = 30
)

// Model is the dispatch history view.
type Model struct {
	table   table.Model
	preview viewport.Model
	records []backend.Record
	width   int
	height  int
	focused bool
}

// New creates a new history view model.
func New() Model {
	cols := []table.Column{
		{Title: " ", Width: 2},
		{Title: "time", Width: 10},
		{Title: "source", Width: 9},
		{Title: "code", Width: 10},
		{Title: "mode", Width: 10},
		{Title: "keyword", Width: 14},
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	vp := viewport.New(viewport.WithWidth(40), viewport.WithHeight(10))

	return Model{
		table:   t,
		preview: vp,
		focused: true,
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.ColorBorder)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(ui.T.Accent)).
		Bold(true)
	return s
}

// SetRecords updates the history and rebuilds the table rows.
func (m *Model) SetRecords(records []backend.Record) {
	prev := m.SelectedShortID()
	m.records = records
	rows := make([]table.Row, len(records))
	cursor := 0
	for i, r := range records {
		rows[i] = table.Row{
			ui.ModeIcon(r.Mode, r.Failed()),
			ui.FormatTime(r.At),
			r.Source,
			r.Code,
			string(r.Mode),
			r.Keyword,
		}
		if r.Short == prev {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(cursor)
	m.updatePreview()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h

	previewW := m.previewWidth()
	tableW := w - previewW - 3

	m.table.SetWidth(tableW)
	m.table.SetHeight(h)
	m.preview.SetWidth(previewW)
	m.preview.SetHeight(h)

	fixedW := 2 + 10 + 9 + 10 + 10 + 5
	keywordW := tableW - fixedW
	if keywordW < 8 {
		keywordW = 8
	}
	cols := m.table.Columns()
	if len(cols) == 6 {
		cols[5].Width = keywordW
		m.table.SetColumns(cols)
	}
}

// SelectedRecord returns the currently selected record, if any.
func (m *Model) SelectedRecord() *backend.Record {
	idx := m.table.Cursor()
	if idx >= 0 && idx < len(m.records) {
		return &m.records[idx]
	}
	return nil
}

// SelectedShortID returns the short ID of the selected record.
func (m *Model) SelectedShortID() string {
	if r := m.SelectedRecord(); r != nil {
		return r.Short
	}
	return ""
}

// Focus sets focus on the history table.
func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes focus from the history table.
func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

// Update handles messages for the history view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	prev := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updatePreview()
	}
	return m, cmd
}

// View renders the table and preview side by side.
func (m Model) View() string {
	tableView := m.table.View()
	if len(m.records) == 0 {
		tableView = lipgloss.NewStyle().Width(m.width - m.previewWidth() - 3).
			Render(ui.StyleDim.Render(" No codes dispatched yet"))
	}

	previewStyle := ui.StylePreviewBorder.
		Width(m.previewWidth()).
		Height(m.height)
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, previewStyle.Render(m.preview.View()))
}

func (m *Model) previewWidth() int {
	pw := int(float64(m.width) * previewWidthFrac)
	if pw < minPreviewWidth {
		pw = minPreviewWidth
	}
	return pw
}

func (m *Model) updatePreview() {
	m.preview.SetContent(renderPreview(m.SelectedRecord()))
	m.preview.GotoTop()
}

func renderPreview(r *backend.Record) string {
	if r == nil {
		return ui.StyleDim.Render("No record selected")
	}

	var b strings.Builder
	b.WriteString(ui.StyleCode.Render(r.Code) + "\n\n")
	b.WriteString(ui.StyleAccent.Render("ID:      ") + r.Short + "\n")
	b.WriteString(ui.StyleDim.Render("Full ID: ") + r.ID + "\n")
	b.WriteString(ui.StyleDim.Render("Source:  ") + r.Source + "\n")
	if r.Keyword != "" {
		b.WriteString(ui.StyleDim.Render("Keyword: ") + r.Keyword + "\n")
	}
	b.WriteString(ui.StyleDim.Render("Mode:    ") + string(r.Mode) + "\n")
	b.WriteString(ui.StyleDim.Render("At:      ") + ui.FormatTime(r.At) + "\n")
	if r.Error != "" {
		b.WriteString(ui.StyleError.Render("Error:   "+r.Error) + "\n")
	}
	b.WriteString("\n" + ui.StyleDim.Render("enter copies this code again"))
	return b.String()
}
