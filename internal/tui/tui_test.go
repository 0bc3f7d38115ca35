package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

func ready(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func intp(v int) *int { return &v }

func TestLiveTabFollowsBroadcasts(t *testing.T) {
	m := ready(t, New(nil))
	if !strings.Contains(m.renderLive(), "not tracking") {
		t.Error("idle dashboard should say it is not tracking")
	}

	m = send(m, BroadcastMsg{Type: engine.TypeConnectionStatus,
		Payload: engine.ConnectionStatus{Status: stream.StatusConnected, URL: "wss://eeg.example"}})
	m = send(m, BroadcastMsg{Type: engine.TypeFocusUpdate, Payload: engine.FocusUpdate{
		URL:      "https://read.example/a",
		Hostname: "read.example",
		Latest:   &sample.Sample{FocusScore: 72},
		Samples:  []sample.Sample{{FocusScore: 60}, {FocusScore: 72}},
		Session: &session.LiveSnapshot{
			Hostname: "read.example", URL: "https://read.example/a",
			Duration: 125, FocusScore: intp(66), IsLive: true,
		},
	}})

	live := m.renderLive()
	for _, want := range []string{"read.example", "66", "On fire", "2m", "connected", "wss://eeg.example"} {
		if !strings.Contains(live, want) {
			t.Errorf("live tab missing %q:\n%s", want, live)
		}
	}

	m = send(m, BroadcastMsg{Type: engine.TypeFocusStop})
	if m.live != nil || m.latest != nil || m.url != "" || len(m.samples) != 0 {
		t.Errorf("focus-stop should clear live state, got %+v", m.live)
	}
	if m.eegStatus != stream.StatusConnected {
		t.Error("focus-stop must not touch the stream status")
	}
}

func TestFocusSnapshot(t *testing.T) {
	m := ready(t, New(nil))
	m = send(m, FocusMsg{
		CurrentURL:       "https://x.example",
		LatestFocusScore: intp(20),
		EEGStatus:        stream.StatusError,
	})
	live := m.renderLive()
	if !strings.Contains(live, "Unfocused") || !strings.Contains(live, "error") {
		t.Errorf("snapshot not rendered:\n%s", live)
	}
}

func TestSitesAndRecentTabs(t *testing.T) {
	m := ready(t, New(nil))
	end := time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)
	m = send(m, LogMsg{
		{Hostname: "a.example", Duration: 30, FocusScore: 80, EndTime: end},
		{Hostname: "b.example", Duration: 4000, FocusScore: 20, EndTime: end},
	})
	sites := m.renderSites()
	if !strings.Contains(sites, "a.example") || !strings.Contains(sites, "1h 6m") {
		t.Errorf("sites tab:\n%s", sites)
	}
	if strings.Index(sites, "a.example") > strings.Index(sites, "b.example") {
		t.Error("sites should be ordered by score")
	}
	if recent := m.renderRecent(); !strings.Contains(recent, "20 pts") {
		t.Errorf("recent tab:\n%s", recent)
	}
}

func TestKeysAndErrors(t *testing.T) {
	m := ready(t, New(nil))
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != tabSites {
		t.Errorf("tab: want Sites, got %d", m.activeTab)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	if m.activeTab != tabRecent {
		t.Errorf("3: want Recent, got %d", m.activeTab)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab != tabSites {
		t.Errorf("shift+tab: want Sites, got %d", m.activeTab)
	}

	m = send(m, ErrMsg{Err: errors.New("daemon unreachable")})
	if !strings.Contains(m.renderLive(), "daemon unreachable") {
		t.Error("error should be shown on the live tab")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should produce tea.QuitMsg")
	}
}

func TestFeedChannel(t *testing.T) {
	src := make(chan tea.Msg, 2)
	m := ready(t, New(src))
	src <- BroadcastMsg{Type: engine.TypeFocusStop}
	close(src)

	msg := m.Init()()
	if _, ok := msg.(BroadcastMsg); !ok {
		t.Fatalf("first feed value: got %T", msg)
	}
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		t.Fatal("dashboard should keep listening after a feed value")
	}
	m = send(m, cmd())
	if !m.closed {
		t.Error("closing the feed should mark the dashboard closed")
	}
	if !strings.Contains(m.View(), "EEG idle") {
		t.Error("status bar should show the stream status")
	}
}

func TestTrend(t *testing.T) {
	var samples []sample.Sample
	for i := 0; i < 20; i++ {
		samples = append(samples, sample.Sample{FocusScore: i * 5})
	}
	if got := []rune(stripANSI(trend(samples))); len(got) != trendBars {
		t.Errorf("trend should show %d bars, got %d", trendBars, len(got))
	}
	if !strings.Contains(trend(nil), "waiting") {
		t.Error("empty trend should say it is waiting")
	}
}

// stripANSI drops terminal escape sequences.
func stripANSI(s string) string {
	var sb strings.Builder
	esc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			esc = false
		case !esc:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
