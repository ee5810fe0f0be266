package keywords

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/table"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/otp"
	"github.com/olivoil/otpwatch/internal/ui"
)

const (
	previewWidthFrac = 0.45
	minPreviewWidth  = 30
)

// Model lists the configured trigger keywords with their hit counts.
type Model struct {
	table    table.Model
	preview  viewport.Model
	keywords []string
	stats    []backend.KeywordStat
	records  []backend.Record // all records, for showing recent per keyword
	width    int
	height   int
	focused  bool
}

// New creates a new keywords view model.
func New() Model {
	cols := []table.Column{
		{Title: "keyword", Width: 18},
		{Title: "hits", Width: 6},
		{Title: "last", Width: 8},
		{Title: "", Width: 9},
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.ColorBorder)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(ui.T.SelectionForeground)).
		Background(ui.ColorAccent).
		Bold(true)
	t.SetStyles(s)

	vp := viewport.New(viewport.WithWidth(40), viewport.WithHeight(10))

	return Model{
		table:   t,
		preview: vp,
	}
}

// SetKeywords updates the configured keyword list.
func (m *Model) SetKeywords(keywords []string) {
	m.keywords = keywords
	m.rebuild()
}

// SetRecords stores history for hit counts and the recent-codes preview.
func (m *Model) SetRecords(records []backend.Record) {
	m.records = records
	m.rebuild()
}

func (m *Model) rebuild() {
	m.stats = backend.KeywordStats(m.keywords, m.records)
	now := time.Now()
	isDefault := slices.Equal(m.keywords, otp.DefaultKeywords)
	rows := make([]table.Row, len(m.stats))
	for i, s := range m.stats {
		note := ""
		if isDefault {
			note = "default"
		}
		rows[i] = table.Row{
			s.Keyword,
			fmt.Sprintf("%d", s.Hits),
			ui.FormatAgo(s.Last, now),
			note,
		}
	}
	m.table.SetRows(rows)
	m.updatePreview()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h

	previewW := int(float64(w) * previewWidthFrac)
	if previewW < minPreviewWidth {
		previewW = minPreviewWidth
	}
	tableW := w - previewW - 3

	m.table.SetWidth(tableW)
	m.table.SetHeight(h)
	m.preview.SetWidth(previewW)
	m.preview.SetHeight(h)
}

// SelectedKeyword returns the currently selected keyword stats, if any.
func (m *Model) SelectedKeyword() *backend.KeywordStat {
	idx := m.table.Cursor()
	if idx >= 0 && idx < len(m.stats) {
		return &m.stats[idx]
	}
	return nil
}

// Focus sets focus on the keywords table.
func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes focus from the keywords table.
func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

// Update handles messages for the keywords view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	prev := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updatePreview()
	}
	return m, cmd
}

// View renders the keywords view.
func (m Model) View() string {
	tableView := m.table.View()
	previewStyle := ui.StylePreviewBorder.Height(m.height)
	previewView := previewStyle.Render(m.preview.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, previewView)
}

func (m *Model) updatePreview() {
	kw := m.SelectedKeyword()
	if kw == nil {
		m.preview.SetContent(ui.StyleDim.Render("No keyword selected"))
		return
	}

	var b strings.Builder

	b.WriteString(ui.StyleAccent.Render("Keyword: ") + kw.Keyword + "\n")
	b.WriteString(ui.StyleDim.Render("Hits:    ") + fmt.Sprintf("%d", kw.Hits) + "\n")
	if !kw.Last.IsZero() {
		b.WriteString(ui.StyleDim.Render("Last:    ") + kw.Last.Local().Format("Jan 02 15:04") + "\n")
	}

	b.WriteString("\n" + ui.StyleDim.Render("─── Recent codes ───") + "\n\n")

	count := 0
	for _, r := range m.records {
		if r.Keyword != kw.Keyword {
			continue
		}
		icon := ui.ModeIcon(r.Mode, r.Failed())
		b.WriteString(fmt.Sprintf("%s  %s  %-9s %s\n", icon, ui.FormatTime(r.At), r.Source, r.Code))
		count++
		if count >= 5 {
			break
		}
	}
	if count == 0 {
		b.WriteString(ui.StyleDim.Render("(no codes)"))
	}

	m.preview.SetContent(b.String())
	m.preview.GotoTop()
}
