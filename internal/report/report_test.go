package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/fakeyudi/sitefocus/internal/report"
	"github.com/fakeyudi/sitefocus/internal/session"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixture() []session.FinalizedSession {
	mk := func(host string, score int, dur float64, offset time.Duration) session.FinalizedSession {
		start := base.Add(offset)
		return session.FinalizedSession{
			ID:         host + start.Format("150405"),
			Hostname:   host,
			URL:        "https://" + host + "/",
			StartTime:  start,
			EndTime:    start.Add(time.Duration(dur * float64(time.Second))),
			Duration:   dur,
			FocusScore: score,
		}
	}
	return []session.FinalizedSession{
		mk("docs.example", 80, 600, 0),
		mk("news.example", 30, 45, time.Hour),
		mk("docs.example", 60, 3900, 2*time.Hour),
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{59.4, "59s"},
		{60, "1m"},
		{719, "11m"},
		{3600, "1h 0m"},
		{3900, "1h 5m"},
		{90061, "25h 1m"},
	}
	for _, c := range cases {
		if got := report.FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v): want %q, got %q", c.in, c.want, got)
		}
	}
}

func TestBuild(t *testing.T) {
	rep := report.Build(fixture(), base.Add(3*time.Hour))
	if rep.Total != 3 {
		t.Errorf("Total: want 3, got %d", rep.Total)
	}
	if len(rep.Sites) != 2 || rep.Sites[0].Hostname != "docs.example" || rep.Sites[0].AvgScore != 70 {
		t.Errorf("unexpected sites %+v", rep.Sites)
	}
	if len(rep.Recent) != 3 || rep.Recent[0].FocusScore != 60 {
		t.Errorf("recent should be newest first, got %+v", rep.Recent)
	}

	empty := report.Build(nil, base)
	if empty.Sites == nil || empty.Recent == nil {
		t.Error("empty report should carry empty, non-nil slices")
	}
}

func TestMarkdownRenderer(t *testing.T) {
	r, err := report.ForFormat("markdown")
	if err != nil {
		t.Fatal(err)
	}
	data, err := r.Render(report.Build(fixture(), base))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	md := string(data)
	for _, want := range []string{
		"## Summary",
		"## Sites",
		"## Recent Sessions",
		"| docs.example | 70 | high | 2 | 1h 15m |",
		"| news.example | 30 | low | 1 | 45s |",
		"- Most focused: docs.example (70)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}

	data, _ = r.Render(report.Build(nil, base))
	if !strings.Contains(string(data), "_No sessions recorded._") {
		t.Error("empty report should say so")
	}
}

func TestJSONAndYAMLRenderers(t *testing.T) {
	rep := report.Build(fixture(), base)

	jr, _ := report.ForFormat("json")
	data, err := jr.Render(rep)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	for _, key := range []string{"generatedAt", "total", "sites", "recent"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("json missing key %q", key)
		}
	}

	yr, _ := report.ForFormat("yaml")
	data, err = yr.Render(rep)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var y map[string]any
	if err := yaml.Unmarshal(data, &y); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if y["total"] != 3 {
		t.Errorf("yaml total: got %v", y["total"])
	}
	if strings.Contains(string(data), "focus_samples") {
		t.Error("yaml should omit raw samples")
	}
	if yr.Ext() != ".yaml" || jr.Ext() != ".json" {
		t.Error("unexpected extensions")
	}

	if _, err := report.ForFormat("pdf"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

// Every renderer produces output for any log, and the report's site
// visits always add up to its total.
func TestReportCompleteness(t *testing.T) {
	hosts := []string{"a.example", "b.example", "c.example"}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		sessions := make([]session.FinalizedSession, n)
		for i := range sessions {
			sessions[i] = session.FinalizedSession{
				Hostname:   rapid.SampledFrom(hosts).Draw(t, "host"),
				Duration:   rapid.Float64Range(1, 10_000).Draw(t, "dur"),
				FocusScore: rapid.IntRange(0, 100).Draw(t, "score"),
				EndTime:    base.Add(time.Duration(i) * time.Minute),
			}
		}
		rep := report.Build(sessions, base)

		visits := 0
		for _, s := range rep.Sites {
			visits += s.Visits
		}
		if visits != n || rep.Total != n {
			t.Fatalf("visits %d, total %d, want %d", visits, rep.Total, n)
		}
		if len(rep.Recent) != min(n, report.RecentCount) {
			t.Fatalf("recent: want %d, got %d", min(n, report.RecentCount), len(rep.Recent))
		}
		for _, f := range []string{"json", "markdown", "yaml"} {
			r, _ := report.ForFormat(f)
			if data, err := r.Render(rep); err != nil || len(data) == 0 {
				t.Fatalf("%s: empty output or error %v", f, err)
			}
		}
	})
}
