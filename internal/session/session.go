package session

import (
	"net/url"
	"strings"
	"time"

	"github.com/fakeyudi/sitefocus/internal/sample"
)

const (
	// MinSessionDuration is the shortest session that is persisted.
	MinSessionDuration = time.Second
	// MaxSamples bounds the live sample buffer of the active session.
	MaxSamples = 60
	// MaxStoredSessions bounds the persisted session log.
	MaxStoredSessions = 500
	// FallbackScore is recorded when a session ends with no score at all.
	FallbackScore = 50
)

// Tab is the subset of a browser tab the tracker cares about.
type Tab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	WindowID int    `json:"windowId,omitempty"`
}

// ActiveSession is the single in-progress browsing session.
type ActiveSession struct {
	TabID     int       `json:"tabId"`
	URL       string    `json:"url"`
	Hostname  string    `json:"hostname,omitempty"` // empty when the URL does not resolve
	StartTime time.Time `json:"startTime"`
}

// FinalizedSession is a completed, persisted session. It is never mutated
// after creation.
type FinalizedSession struct {
	ID           string          `json:"id" yaml:"id"`
	Hostname     string          `json:"hostname" yaml:"hostname"`
	URL          string          `json:"url" yaml:"url"`
	StartTime    time.Time       `json:"startTime" yaml:"start_time"`
	EndTime      time.Time       `json:"endTime" yaml:"end_time"`
	Duration     float64         `json:"duration" yaml:"duration"` // seconds
	FocusScore   int             `json:"focusScore" yaml:"focus_score"`
	FocusSamples []sample.Sample `json:"focusSamples" yaml:"-"`
}

// LiveSnapshot is the continuously recomputed view of the active session.
// FocusScore is nil until the session has seen at least one sample.
type LiveSnapshot struct {
	Hostname     string          `json:"hostname"`
	URL          string          `json:"url"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	Duration     float64         `json:"duration"`
	FocusScore   *int            `json:"focusScore"`
	FocusSamples []sample.Sample `json:"focusSamples"`
	IsLive       bool            `json:"isLive"`
}

// internalSchemes are browser-owned pages that never start a session.
var internalSchemes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"about:",
	"devtools://",
}

// IsInternalURL reports whether rawURL points at a browser-internal page.
func IsInternalURL(rawURL string) bool {
	for _, prefix := range internalSchemes {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}

// Hostname extracts the lower-cased host of rawURL. The second result is
// false when the URL cannot be parsed or has no host.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}
