package session_test

import (
	"testing"

	"github.com/fakeyudi/sitefocus/internal/session"
)

func visit(host string, duration float64, score int) session.FinalizedSession {
	return session.FinalizedSession{Hostname: host, Duration: duration, FocusScore: score}
}

func TestSummarize(t *testing.T) {
	stats := session.Summarize([]session.FinalizedSession{
		visit("docs.example", 30, 80),
		visit("news.example", 10, 20),
		visit("docs.example", 90, 61),
		visit("mail.example", 5, 45),
		visit("news.example", 20, 41),
	})
	want := []session.SiteStats{
		{Hostname: "docs.example", Visits: 2, TotalDuration: 120, TotalScore: 141, AvgScore: 71},
		{Hostname: "mail.example", Visits: 1, TotalDuration: 5, TotalScore: 45, AvgScore: 45},
		{Hostname: "news.example", Visits: 2, TotalDuration: 30, TotalScore: 61, AvgScore: 31},
	}
	if len(stats) != len(want) {
		t.Fatalf("want %d hosts, got %d: %+v", len(want), len(stats), stats)
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("stats[%d]: want %+v, got %+v", i, want[i], stats[i])
		}
	}
}

func TestSummarizeTiesKeepFirstSeenOrder(t *testing.T) {
	stats := session.Summarize([]session.FinalizedSession{
		visit("b.example", 1, 50),
		visit("a.example", 1, 50),
	})
	if stats[0].Hostname != "b.example" || stats[1].Hostname != "a.example" {
		t.Errorf("unexpected order: %+v", stats)
	}
	if len(session.Summarize(nil)) != 0 {
		t.Error("empty input should produce no stats")
	}
}

func TestRecent(t *testing.T) {
	all := []session.FinalizedSession{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := session.Recent(all, 2)
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Errorf("Recent(2): got %+v", got)
	}
	if got := session.Recent(all, 10); len(got) != 3 || got[2].ID != "1" {
		t.Errorf("Recent(10): got %+v", got)
	}
}

func TestBandsAndLabels(t *testing.T) {
	bands := map[int]string{0: "low", 39: "low", 40: "medium", 69: "medium", 70: "high", 100: "high"}
	for score, want := range bands {
		if got := session.Band(score); got != want {
			t.Errorf("Band(%d): want %s, got %s", score, want, got)
		}
	}
	labels := map[int]string{34: "Unfocused", 35: "Steady", 59: "Steady", 60: "On fire"}
	for score, want := range labels {
		if got := session.LiveLabel(score); got != want {
			t.Errorf("LiveLabel(%d): want %s, got %s", score, want, got)
		}
	}
}

func TestHostname(t *testing.T) {
	cases := map[string]string{
		"https://A.example:8443/x": "a.example",
		"http://[::1]/":            "::1",
		"not a url":                "",
		"https://%zz":              "",
	}
	for in, want := range cases {
		got, ok := session.Hostname(in)
		if got != want || ok != (want != "") {
			t.Errorf("Hostname(%q): want %q, got %q (%v)", in, want, got, ok)
		}
	}
}
