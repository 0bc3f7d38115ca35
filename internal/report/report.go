// Package report turns the stored session log into a shareable summary.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/fakeyudi/sitefocus/internal/session"
)

// RecentCount is how many of the latest sessions a report lists.
const RecentCount = 7

// Report is the complete, renderable summary of a session log.
type Report struct {
	GeneratedAt time.Time                  `json:"generatedAt" yaml:"generated_at"`
	Total       int                        `json:"total" yaml:"total"`
	Sites       []session.SiteStats        `json:"sites" yaml:"sites"`
	Recent      []session.FinalizedSession `json:"recent" yaml:"recent"`
}

// Build summarizes sessions (oldest first) as of now.
func Build(sessions []session.FinalizedSession, now time.Time) *Report {
	r := &Report{
		GeneratedAt: now,
		Total:       len(sessions),
		Sites:       session.Summarize(sessions),
		Recent:      session.Recent(sessions, RecentCount),
	}
	if r.Sites == nil {
		r.Sites = []session.SiteStats{}
	}
	if r.Recent == nil {
		r.Recent = []session.FinalizedSession{}
	}
	return r
}

// FormatDuration renders seconds as "45s", "12m" or "1h 5m".
func FormatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", int(math.Round(seconds)))
	}
	mins := int(seconds / 60)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
