package session

import (
	"math"
	"sort"

	"github.com/fakeyudi/sitefocus/internal/sample"
)

// SiteStats aggregates all stored sessions for one hostname.
type SiteStats struct {
	Hostname      string  `json:"hostname" yaml:"hostname"`
	Visits        int     `json:"visits" yaml:"visits"`
	TotalDuration float64 `json:"totalDuration" yaml:"total_duration"` // seconds
	TotalScore    int     `json:"totalScore" yaml:"total_score"`
	AvgScore      int     `json:"avgScore" yaml:"avg_score"`
}

// meanScore returns the rounded mean focus score of samples.
func meanScore(samples []sample.Sample) (int, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	sum := 0
	for _, s := range samples {
		sum += s.FocusScore
	}
	return roundDiv(sum, len(samples)), true
}

// roundDiv rounds half away from zero; scores are never negative so this
// matches rounding half up.
func roundDiv(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}

// Summarize groups sessions by hostname and orders the result by average
// score, highest first. Hosts with equal averages keep first-seen order.
func Summarize(sessions []FinalizedSession) []SiteStats {
	index := make(map[string]int)
	var stats []SiteStats
	for _, s := range sessions {
		i, ok := index[s.Hostname]
		if !ok {
			i = len(stats)
			index[s.Hostname] = i
			stats = append(stats, SiteStats{Hostname: s.Hostname})
		}
		stats[i].Visits++
		stats[i].TotalDuration += s.Duration
		stats[i].TotalScore += s.FocusScore
	}
	for i := range stats {
		stats[i].AvgScore = roundDiv(stats[i].TotalScore, stats[i].Visits)
	}
	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].AvgScore > stats[b].AvgScore
	})
	return stats
}

// Recent returns up to n sessions, newest first.
func Recent(sessions []FinalizedSession, n int) []FinalizedSession {
	n = min(max(n, 0), len(sessions))
	out := make([]FinalizedSession, 0, n)
	for i := len(sessions) - 1; i >= len(sessions)-n; i-- {
		out = append(out, sessions[i])
	}
	return out
}

// Band classifies an aggregate score.
func Band(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// LiveLabel describes a live score the way the overlay shows it.
func LiveLabel(score int) string {
	switch {
	case score >= 60:
		return "On fire"
	case score >= 35:
		return "Steady"
	default:
		return "Unfocused"
	}
}
