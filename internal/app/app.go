package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/dispatch"
	"github.com/olivoil/otpwatch/internal/otp"
	"github.com/olivoil/otpwatch/internal/ui"
	"github.com/olivoil/otpwatch/internal/views/command"
	"github.com/olivoil/otpwatch/internal/views/history"
	"github.com/olivoil/otpwatch/internal/views/keywords"
	"github.com/olivoil/otpwatch/internal/views/logview"
)

const (
	AppName = config.AppName

	statusPollInterval = 3 * time.Second
	logTailLines       = 500
)

// Options configures the dashboard.
type Options struct {
	Client    *backend.Client
	Clipboard dispatch.Clipboard
	Log       *zap.Logger
	Version   string
}

// programSender forwards watcher events once the program exists.
type programSender struct{ p atomic.Pointer[tea.Program] }

func (s *programSender) Send(msg tea.Msg) {
	if p := s.p.Load(); p != nil {
		p.Send(msg)
	}
}

// Run starts the TUI application.
func Run(ctx context.Context, opts Options) error {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = dispatch.SystemClipboard{}
	}

	sender := &programSender{}
	m := newModel(opts)
	w, err := backend.NewWatcher(opts.Client, sender, opts.Log.Named("tui.watcher"))
	if err != nil {
		opts.Log.Warn("live refresh disabled", zap.Error(err))
	} else {
		m.watcher = w
		defer w.Close()
	}

	p := tea.NewProgram(m, tea.WithContext(ctx))
	sender.p.Store(p)

	_, err = p.Run()
	return err
}

// viewMode identifies which view is active.
type viewMode int

const (
	viewHistory viewMode = iota
	viewKeywords
	viewLog
)

// model is the root application model.
type model struct {
	width    int
	height   int
	mode     viewMode
	prevMode viewMode
	ready    bool
	showHelp bool
	keys     KeyMap
	version  string

	client  *backend.Client
	watcher *backend.Watcher
	clip    dispatch.Clipboard

	status    backend.Status
	records   []backend.Record
	configErr error

	historyView  history.Model
	keywordsView keywords.Model
	commandView  command.Model
	logView      logview.Model
}

func newModel(opts Options) model {
	m := model{
		mode:         viewHistory,
		keys:         DefaultKeyMap(),
		version:      opts.Version,
		client:       opts.Client,
		clip:         opts.Clipboard,
		historyView:  history.New(),
		keywordsView: keywords.New(),
		commandView:  command.New(),
		logView:      logview.New(),
	}
	m.keywordsView.SetKeywords(opts.Client.Config().TriggerKeywords)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.loadStatus,
		m.loadHistory,
		m.tickStatus(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layoutViews()
		return m, nil

	case StatusLoadedMsg:
		m.status = backend.DeriveStats(msg.Status, m.records)
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err == nil {
			m.records = msg.Records
			m.historyView.SetRecords(msg.Records)
			m.keywordsView.SetRecords(msg.Records)
			ids := make([]string, 0, len(msg.Records))
			desc := make(map[string]string, len(msg.Records))
			for _, r := range msg.Records {
				ids = append(ids, r.Short)
				desc[r.Short] = r.Code + "  " + r.Source + "  " + ui.FormatTime(r.At)
			}
			m.commandView.SetRecords(ids, desc)
			m.status = backend.DeriveStats(m.status, m.records)
		}
		return m, nil

	case ConfigLoadedMsg:
		m.configErr = msg.Err
		m.keywordsView.SetKeywords(msg.Keywords)
		return m, m.loadStatus

	case LogLoadedMsg:
		if msg.Err != nil || m.mode != viewLog {
			return m, nil
		}
		if m.logView.Path() != msg.Path {
			m.logView.Show(msg.Path, msg.Lines)
		} else {
			m.logView.UpdateLog(msg.Lines)
		}
		return m, nil

	case backend.WatchMsg:
		switch msg.Kind {
		case backend.WatchHistory:
			return m, m.loadHistory
		case backend.WatchConfig:
			return m, m.reloadConfig
		case backend.WatchLog:
			if m.mode == viewLog {
				return m, m.loadLog
			}
		}
		return m, nil

	case StatusTickMsg:
		return m, tea.Batch(m.loadStatus, m.tickStatus())

	case command.ExecuteMsg:
		return m.executeCommand(msg.Args)

	case command.DryRunMsg:
		m.commandView.SetResult(m.dryRun(msg.Text))
		return m, nil

	case ActionResultMsg:
		if msg.Err != nil {
			m.commandView.SetError(msg.Err)
		} else {
			m.commandView.SetResult(msg.Output)
		}
		return m, nil

	case tea.KeyPressMsg:
		// If command line has focus, let it handle keys first.
		if m.commandView.Focused() {
			var cmd tea.Cmd
			m.commandView, cmd = m.commandView.Update(msg)
			if !m.commandView.Focused() {
				m.restorePreviousView()
			}
			return m, cmd
		}
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

func (m model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	// Log view has its own key handling.
	if m.mode == viewLog {
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back), msg.String() == "q":
			m.closeLog()
			return m, nil
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		switch m.mode {
		case viewHistory:
			m.switchTo(viewKeywords)
		case viewKeywords:
			m.switchTo(viewHistory)
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Log):
		return m, m.openLog()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.prevMode = m.mode
		m.historyView.Blur()
		m.keywordsView.Blur()
		cmd := m.commandView.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadStatus, m.loadHistory, m.reloadConfig)
	}

	return m.updateActiveView(msg)
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	if m.mode != viewHistory {
		return m, nil
	}
	r := m.historyView.SelectedRecord()
	if r == nil {
		return m, nil
	}
	return m, m.copyRecord(*r)
}

func (m *model) switchTo(mode viewMode) {
	m.historyView.Blur()
	m.keywordsView.Blur()
	m.mode = mode
	m.focusCurrentView()
}

func (m *model) restorePreviousView() {
	m.mode = m.prevMode
	m.focusCurrentView()
}

func (m *model) focusCurrentView() {
	switch m.mode {
	case viewHistory:
		m.historyView.Focus()
	case viewKeywords:
		m.keywordsView.Focus()
	}
}

func (m *model) openLog() tea.Cmd {
	if m.mode != viewLog {
		m.prevMode = m.mode
	}
	m.mode = viewLog
	m.historyView.Blur()
	m.keywordsView.Blur()
	if m.watcher != nil {
		m.watcher.WatchLog(m.client.LogPath())
	}
	return m.loadLog
}

func (m *model) closeLog() {
	m.logView.Hide()
	if m.watcher != nil {
		m.watcher.WatchLog("")
	}
	m.mode = m.prevMode
	m.focusCurrentView()
}

func (m model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case viewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case viewKeywords:
		m.keywordsView, cmd = m.keywordsView.Update(msg)
	case viewLog:
		m.logView, cmd = m.logView.Update(msg)
	}
	return m, cmd
}

func (m model) View() tea.View {
	var v tea.View
	v.AltScreen = true

	if !m.ready {
		v.SetContent("Loading...")
		return v
	}

	var b strings.Builder

	// Help overlay.
	if m.showHelp {
		v.SetContent(m.renderHelpOverlay())
		return v
	}

	// Full-screen log view (no header/footer).
	if m.mode == viewLog {
		b.WriteString(m.logView.View())
		b.WriteByte('\n')
		b.WriteString(ui.StyleDim.Render(" esc back  │  j/k scroll  │  ctrl+c quit"))
		v.SetContent(b.String())
		return v
	}

	// Header (2 lines: title + bar).
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')

	menuHeight := m.commandView.MenuHeight()

	// Resize content area to fit.
	contentHeight := m.height - 3 - menuHeight // 3 = header(2) + bottom(1)
	if contentHeight < 5 {
		contentHeight = 5
	}
	m.historyView.SetSize(m.width, contentHeight)
	m.keywordsView.SetSize(m.width, contentHeight)

	// Main content area.
	if resultView := m.commandView.ViewResult(); resultView != "" {
		b.WriteString(resultView)
	} else {
		switch m.mode {
		case viewHistory:
			b.WriteString(m.historyView.View())
		case viewKeywords:
			b.WriteString(m.keywordsView.View())
		}
	}

	// Bottom: command input (with menu) or help line.
	b.WriteByte('\n')
	if m.commandView.Focused() {
		b.WriteString(m.commandView.ViewInput())
	} else {
		b.WriteString(m.renderHelpLine())
	}

	v.SetContent(b.String())
	return v
}

func (m *model) renderHeader() string {
	title := ui.StyleHeader.Render(fmt.Sprintf(" %s ", AppName))

	var statusStr string
	if m.status.Running {
		statusStr = ui.StyleActive.Render(fmt.Sprintf("● WATCHING (pid %d)", m.status.PID))
	} else {
		statusStr = ui.StyleInactive.Render("○ STOPPED")
	}

	toggles := strings.Join([]string{
		ui.OnOff("mail", m.status.Mail),
		ui.OnOff("paste", m.status.AutoPaste),
		ui.OnOff("confirm", m.status.Confirm),
	}, "  ")

	stats := ui.StyleDim.Render(fmt.Sprintf("today: %d   total: %d", m.status.Today, m.status.Total))

	sep := ui.StyleDim.Render("   ")
	parts := []string{title, sep, statusStr, sep, toggles, sep, stats}
	if m.configErr != nil {
		parts = append(parts, sep, ui.StyleError.Render("config error"))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, parts...)

	bar := strings.Repeat("━", m.width)
	return header + "\n" + ui.StyleDim.Render(bar)
}

func (m *model) renderHelpLine() string {
	var parts []string
	switch m.mode {
	case viewHistory:
		parts = []string{"↑↓ navigate", "enter copy", "l log", "/ command", "tab keywords", "q quit"}
	case viewKeywords:
		parts = []string{"↑↓ navigate", "tab history", "l log", "/ command", "q quit"}
	}
	return ui.StyleDim.Render(" " + strings.Join(parts, "  │  "))
}

func (m *model) renderHelpOverlay() string {
	title := ui.StyleHeader.Render(fmt.Sprintf(" %s help ", AppName))
	help := `
  Navigation
    ↑/↓, j/k       Navigate list
    tab             Switch history ↔ keywords
    enter           Copy the selected code again
    l               Open the daemon log
    esc             Back to previous view
    q, ctrl+c       Quit

  Command Line
    /               Open command line
    enter           Execute command
    tab             Tab completion
    esc             Close command line

  Commands
    copy ID         Copy a code from history
    status          Show daemon status
    config show     Show effective config
    config reload   Re-read config file
    <anything>      Test text against the detector

  Other
    ctrl+l          Refresh all data
    ?               Toggle this help

  ` + ui.StyleDim.Render("Press ? to close")
	return title + "\n" + help
}

func (m *model) layoutViews() {
	viewHeight := m.height - 3
	if viewHeight < 5 {
		viewHeight = 5
	}
	m.historyView.SetSize(m.width, viewHeight)
	m.keywordsView.SetSize(m.width, viewHeight)
	m.commandView.SetSize(m.width, viewHeight)
	m.logView.SetSize(m.width, m.height-1) // full height minus help line
}

// --- Commands ---

func (m *model) loadStatus() tea.Msg {
	return StatusLoadedMsg{Status: m.client.Status()}
}

func (m *model) loadHistory() tea.Msg {
	records, err := m.client.ReadHistory()
	return HistoryLoadedMsg{Records: records, Err: err}
}

func (m *model) reloadConfig() tea.Msg {
	cfg, err := m.client.Reload()
	return ConfigLoadedMsg{Keywords: cfg.TriggerKeywords, Err: err}
}

func (m *model) loadLog() tea.Msg {
	path := m.client.LogPath()
	lines, err := m.client.ReadLog(logTailLines)
	return LogLoadedMsg{Path: path, Lines: lines, Err: err}
}

func (m *model) tickStatus() tea.Cmd {
	return tea.Tick(statusPollInterval, func(time.Time) tea.Msg {
		return StatusTickMsg{}
	})
}

func (m *model) copyRecord(r backend.Record) tea.Cmd {
	clip := m.clip
	return func() tea.Msg {
		if err := clip.WriteAll(r.Code); err != nil {
			return ActionResultMsg{Err: fmt.Errorf("copy: %w", err)}
		}
		return ActionResultMsg{Output: fmt.Sprintf("Copied %s (%s, %s)", r.Code, r.Source, ui.FormatTime(r.At))}
	}
}

func (m model) executeCommand(args []string) (tea.Model, tea.Cmd) {
	switch args[0] {
	case "copy":
		if len(args) < 2 {
			m.commandView.SetError(fmt.Errorf("usage: copy ID"))
			return m, nil
		}
		r, err := backend.FindRecord(m.records, args[1])
		if err != nil {
			m.commandView.SetError(err)
			return m, nil
		}
		return m, m.copyRecord(r)

	case "status":
		m.commandView.SetResult(m.renderStatus())
		return m, nil

	case "history", "keywords":
		m.commandView.Blur()
		m.commandView.ClearResult()
		if args[0] == "history" {
			m.switchTo(viewHistory)
		} else {
			m.switchTo(viewKeywords)
		}
		return m, nil

	case "log":
		m.commandView.Blur()
		m.commandView.ClearResult()
		return m, m.openLog()

	case "config":
		sub := "show"
		if len(args) > 1 {
			sub = args[1]
		}
		switch sub {
		case "path":
			m.commandView.SetResult(m.client.ConfigPath())
		case "reload":
			return m, tea.Sequence(m.reloadConfig, func() tea.Msg {
				return ActionResultMsg{Output: "Config reloaded from " + m.client.ConfigPath()}
			})
		default:
			var buf bytes.Buffer
			if err := config.Encode(&buf, m.client.Config()); err != nil {
				m.commandView.SetError(err)
			} else {
				m.commandView.SetResult(buf.String())
			}
		}
		return m, nil

	case "version":
		m.commandView.SetResult(fmt.Sprintf("%s %s", AppName, m.version))
		return m, nil

	case "help":
		m.commandView.Blur()
		m.commandView.ClearResult()
		m.restorePreviousView()
		m.showHelp = true
		return m, nil
	}
	m.commandView.SetError(fmt.Errorf("unknown command %q", args[0]))
	return m, nil
}

func (m *model) renderStatus() string {
	var b strings.Builder
	if m.status.Running {
		fmt.Fprintf(&b, "daemon:   running (pid %d)\n", m.status.PID)
	} else {
		b.WriteString("daemon:   not running\n")
	}
	fmt.Fprintf(&b, "config:   %s\n", m.client.ConfigPath())
	fmt.Fprintf(&b, "history:  %s (%d records, %d today)\n", m.client.HistoryPath(), m.status.Total, m.status.Today)
	fmt.Fprintf(&b, "log:      %s\n", m.client.LogPath())
	fmt.Fprintf(&b, "mail:     %v\n", m.status.Mail)
	fmt.Fprintf(&b, "paste:    %v\n", m.status.AutoPaste)
	fmt.Fprintf(&b, "confirm:  %v\n", m.status.Confirm)
	return b.String()
}

// dryRun runs text through the detector with the current settings.
func (m *model) dryRun(text string) string {
	cfg := m.client.Config()
	return FormatDetection(otp.Detect(text, cfg.TriggerKeywords, cfg.Policy()), cfg.Policy())
}

// FormatDetection renders a detector result for humans.
func FormatDetection(res otp.Result, policy otp.Policy) string {
	var b strings.Builder
	if !res.Triggered {
		b.WriteString(ui.StyleDim.Render("no trigger keyword found; nothing would be dispatched"))
		return b.String()
	}
	b.WriteString(ui.StyleDim.Render("keyword:    ") + res.Keyword + "\n")
	b.WriteString(ui.StyleDim.Render("candidates: "))
	if len(res.Candidates) == 0 {
		b.WriteString("(none)")
	}
	for i, c := range res.Candidates {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%d digits)", c.Token, c.Digits)
	}
	b.WriteString("\n")
	b.WriteString(ui.StyleDim.Render("policy:     ") + string(policy) + "\n")
	if res.Found() {
		b.WriteString(ui.StyleDim.Render("code:       ") + ui.StyleAccent.Render(res.Code))
	} else {
		b.WriteString(ui.StyleDim.Render("code:       ") + "(none)")
	}
	return b.String()
}
