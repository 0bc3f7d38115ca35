// Package tui provides a Bubble Tea dashboard for a running sitefocus daemon.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/report"
	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright, underlined
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	// Separator between tabs
	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	// Section heading inside a tab
	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	// Key=value label
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Score bands
	bandStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")).Bold(true),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12")).Bold(true),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Bold(true),
	}

	streamStyles = map[stream.Status]lipgloss.Style{
		stream.StatusConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
		stream.StatusConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		stream.StatusError:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		stream.StatusDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabLive tabID = iota
	tabSites
	tabRecent
	tabCount
)

var tabNames = [tabCount]string{"Live", "Sites", "Recent"}

// trendBars is how many recent samples the live trend shows.
const trendBars = 12

// ── Messages ────────────────────

// FocusMsg carries a full focus snapshot, typically fetched on start.
type FocusMsg engine.CurrentFocus

// BroadcastMsg carries one live daemon broadcast.
type BroadcastMsg engine.Message

// LogMsg carries the stored session log.
type LogMsg []session.FinalizedSession

// ErrMsg reports a failure talking to the daemon.
type ErrMsg struct{ Err error }

// sourceClosedMsg is delivered once the feed channel is closed.
type sourceClosedMsg struct{}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	source <-chan tea.Msg

	url       string
	samples   []sample.Sample
	latest    *int
	live      *session.LiveSnapshot
	eegStatus stream.Status
	streamURL string
	sites     []session.SiteStats
	recent    []session.FinalizedSession
	err       error
	closed    bool

	gauge     progress.Model
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
}

// New creates a dashboard fed by source. Every value received on source
// is applied as a message; the caller closes it when the feed ends.
func New(source <-chan tea.Msg) Model {
	return Model{
		source:    source,
		eegStatus: stream.StatusIdle,
		gauge:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// listen waits for the next value on the feed.
func listen(source <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-source
		if !ok {
			return sourceClosedMsg{}
		}
		return msg
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	if m.source == nil {
		return nil
	}
	return listen(m.source)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.gauge.Width = max(10, min(50, m.width-20))
		m.initViewports()
		return m, nil

	case FocusMsg:
		m.url = msg.CurrentURL
		m.samples = msg.Samples
		m.latest = msg.LatestFocusScore
		m.live = msg.LiveSession
		m.eegStatus = msg.EEGStatus
		m.streamURL = msg.StreamURL
		m.err = nil
		m.refresh()
		return m, m.next()

	case BroadcastMsg:
		m.applyBroadcast(engine.Message(msg))
		m.err = nil
		m.refresh()
		return m, m.next()

	case LogMsg:
		m.sites = session.Summarize(msg)
		m.recent = session.Recent(msg, report.RecentCount)
		m.refresh()
		return m, m.next()

	case ErrMsg:
		m.err = msg.Err
		m.refresh()
		return m, m.next()

	case sourceClosedMsg:
		m.closed = true
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m *Model) next() tea.Cmd {
	if m.source == nil || m.closed {
		return nil
	}
	return listen(m.source)
}

func (m *Model) applyBroadcast(msg engine.Message) {
	switch msg.Type {
	case engine.TypeFocusUpdate:
		u, ok := msg.Payload.(engine.FocusUpdate)
		if !ok {
			return
		}
		m.url = u.URL
		m.samples = u.Samples
		m.live = u.Session
		if u.Latest != nil {
			v := u.Latest.FocusScore
			m.latest = &v
		}
	case engine.TypeFocusStop:
		m.url = ""
		m.samples = nil
		m.latest = nil
		m.live = nil
	case engine.TypeConnectionStatus:
		if st, ok := msg.Payload.(engine.ConnectionStatus); ok {
			m.eegStatus = st.Status
			if st.URL != "" {
				m.streamURL = st.URL
			}
		}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := titleStyle.Width(m.width).Render("  sitefocus  live")

	// ── Row 2: tab bar ────────────────────────────────────────────────────────
	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	// ── Row 3…N-1: scrollable content ────────────────────────────────────────
	content := m.viewports[m.activeTab].View()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	eeg := "EEG " + string(m.eegStatus)
	pad := m.width - lipgloss.Width(hint) - lipgloss.Width(eeg) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + eeg)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

// refresh re-renders every tab after a state change.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i].SetContent(m.renderTab(i))
	}
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabLive:
		return m.renderLive()
	case tabSites:
		return m.renderSites()
	case tabRecent:
		return m.renderRecent()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderLive() string {
	var sb strings.Builder
	if m.err != nil {
		sb.WriteString("\n" + errStyle.Render("  "+m.err.Error()) + "\n")
	}
	if m.closed {
		sb.WriteString("\n" + errStyle.Render("  connection to the daemon closed") + "\n")
	}
	sb.WriteString(heading("Focus"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", label)) + "  " + value + "\n")
	}

	score := m.latest
	if m.live != nil && m.live.FocusScore != nil {
		score = m.live.FocusScore
	}
	if score == nil {
		row("Score:", dimStyle.Render("--"))
	} else {
		style := bandStyles[session.Band(*score)]
		row("Score:", style.Render(fmt.Sprintf("%d", *score))+"  "+session.LiveLabel(*score))
		row("", m.gauge.ViewAs(float64(*score)/100))
	}
	row("Trend:", trend(m.samples))

	sb.WriteString(heading("Page"))
	if m.url == "" {
		row("Site:", dimStyle.Render("not tracking"))
	} else {
		host := m.url
		if m.live != nil {
			host = m.live.Hostname
		}
		row("Site:", host)
		row("URL:", dimStyle.Render(m.url))
		if m.live != nil {
			row("Time:", timeStyle.Render(report.FormatDuration(m.live.Duration)))
		}
		row("Samples:", fmt.Sprintf("%d", len(m.samples)))
	}

	sb.WriteString(heading("Stream"))
	st, ok := streamStyles[m.eegStatus]
	if !ok {
		st = dimStyle
	}
	row("Status:", st.Render(string(m.eegStatus)))
	if m.streamURL != "" {
		row("URL:", dimStyle.Render(m.streamURL))
	}
	return sb.String()
}

func (m *Model) renderSites() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Sites (%d)", len(m.sites))))
	if len(m.sites) == 0 {
		sb.WriteString(dimStyle.Render("  (no sessions recorded)") + "\n")
		return sb.String()
	}
	for _, s := range m.sites {
		score := bandStyles[session.Band(s.AvgScore)].Render(fmt.Sprintf("%3d", s.AvgScore))
		meta := dimStyle.Render(fmt.Sprintf("%d visits · %s", s.Visits, report.FormatDuration(s.TotalDuration)))
		sb.WriteString(fmt.Sprintf("  %s  %-32s %s\n", score, truncate(s.Hostname, 32), meta))
	}
	return sb.String()
}

func (m *Model) renderRecent() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Recent Sessions (%d)", len(m.recent))))
	if len(m.recent) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, s := range m.recent {
		ts := timeStyle.Render(s.EndTime.Local().Format("15:04"))
		sb.WriteString(fmt.Sprintf("  %s  %-32s %d pts\n", ts, truncate(s.Hostname, 32), s.FocusScore))
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

var levels = []rune("▁▂▃▄▅▆▇█")

// trend renders the last trendBars scores as a sparkline.
func trend(samples []sample.Sample) string {
	if len(samples) == 0 {
		return dimStyle.Render("(waiting for samples)")
	}
	if len(samples) > trendBars {
		samples = samples[len(samples)-trendBars:]
	}
	var sb strings.Builder
	for _, s := range samples {
		i := s.FocusScore * (len(levels) - 1) / 100
		i = max(0, min(len(levels)-1, i))
		sb.WriteString(bandStyles[session.Band(s.FocusScore)].Render(string(levels[i])))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the dashboard on the given feed.
func Run(source <-chan tea.Msg) error {
	p := tea.NewProgram(New(source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
