package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/sitefocus/internal/sample"
)

// Outcome reports what a single event did to the tracker.
type Outcome struct {
	Ended     *ActiveSession    // session closed by the event, if any
	Finalized *FinalizedSession // set when the closed session qualifies for persistence
	Started   *ActiveSession    // session opened by the event, if any
}

// Tracker is the session state machine. It holds at most one ActiveSession
// together with its bounded sample buffer.
//
// A Tracker is not safe for concurrent use. It is meant to be owned by a
// single goroutine that feeds it events one at a time.
type Tracker struct {
	now     func() time.Time
	active  *ActiveSession
	samples []sample.Sample
	latest  *int
}

// NewTracker returns an idle Tracker. A nil now uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, samples: make([]sample.Sample, 0, MaxSamples)}
}

// StartSession begins tracking tab. It does nothing for tabs without an id
// or URL, for browser-internal pages, and when tab's URL is already the one
// being tracked. Otherwise the current session is ended first.
func (t *Tracker) StartSession(tab Tab) Outcome {
	if tab.ID == 0 || tab.URL == "" || IsInternalURL(tab.URL) {
		return Outcome{}
	}
	if t.active != nil && t.active.URL == tab.URL {
		return Outcome{}
	}

	out := t.EndSession()
	host, _ := Hostname(tab.URL)
	t.active = &ActiveSession{
		TabID:     tab.ID,
		URL:       tab.URL,
		Hostname:  host,
		StartTime: t.now(),
	}
	started := *t.active
	out.Started = &started
	return out
}

// EndSession closes the active session. The returned Outcome carries a
// FinalizedSession only when the hostname resolved and the session lasted
// at least MinSessionDuration. The buffer and cached score are always reset.
func (t *Tracker) EndSession() Outcome {
	if t.active == nil {
		return Outcome{}
	}
	ended := *t.active
	out := Outcome{Ended: &ended}

	end := t.now()
	elapsed := end.Sub(ended.StartTime)
	if ended.Hostname != "" && elapsed >= MinSessionDuration {
		score := FallbackScore
		if avg, ok := meanScore(t.samples); ok {
			score = avg
		} else if t.latest != nil {
			score = *t.latest
		}
		out.Finalized = &FinalizedSession{
			ID:           uuid.NewString(),
			Hostname:     ended.Hostname,
			URL:          ended.URL,
			StartTime:    ended.StartTime,
			EndTime:      end,
			Duration:     elapsed.Seconds(),
			FocusScore:   score,
			FocusSamples: t.Samples(),
		}
	}

	t.active = nil
	t.samples = t.samples[:0]
	t.latest = nil
	return out
}

// TabActivated handles a tab switch.
func (t *Tracker) TabActivated(tab Tab) Outcome {
	return t.StartSession(tab)
}

// TabUpdated handles navigation within a tab. Only updates to the tracked
// tab that change its URL or finish loading are considered.
func (t *Tracker) TabUpdated(tab Tab, urlChanged, statusComplete bool) Outcome {
	if t.active == nil || tab.ID != t.active.TabID {
		return Outcome{}
	}
	if !urlChanged && !statusComplete {
		return Outcome{}
	}
	return t.StartSession(tab)
}

// TabRemoved ends the session when tabID is the tracked tab.
func (t *Tracker) TabRemoved(tabID int) Outcome {
	if t.active == nil || t.active.TabID != tabID {
		return Outcome{}
	}
	return t.EndSession()
}

// WindowFocusChanged starts a session for the focused window's active tab,
// or ends the current one when focus left the browser (tab == nil).
func (t *Tracker) WindowFocusChanged(tab *Tab) Outcome {
	if tab == nil {
		return t.EndSession()
	}
	return t.StartSession(*tab)
}

// Suspend ends the current session ahead of process teardown.
func (t *Tracker) Suspend() Outcome {
	return t.EndSession()
}

// AddSample appends s to the active session's buffer, evicting the oldest
// sample past MaxSamples. Samples arriving while idle are dropped and
// AddSample reports false.
func (t *Tracker) AddSample(s sample.Sample) bool {
	if t.active == nil || t.active.StartTime.IsZero() {
		return false
	}
	if len(t.samples) >= MaxSamples {
		n := copy(t.samples, t.samples[len(t.samples)-MaxSamples+1:])
		t.samples = t.samples[:n]
	}
	t.samples = append(t.samples, s)
	score := s.FocusScore
	t.latest = &score
	return true
}

// Active returns a copy of the active session, or nil when idle.
func (t *Tracker) Active() *ActiveSession {
	if t.active == nil {
		return nil
	}
	a := *t.active
	return &a
}

// Samples returns a copy of the buffered samples, oldest first.
func (t *Tracker) Samples() []sample.Sample {
	out := make([]sample.Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// LatestSample returns the most recent buffered sample, or nil.
func (t *Tracker) LatestSample() *sample.Sample {
	if len(t.samples) == 0 {
		return nil
	}
	s := t.samples[len(t.samples)-1]
	return &s
}

// LatestScore returns the cached score of the last accepted sample, or nil.
func (t *Tracker) LatestScore() *int {
	if t.latest == nil {
		return nil
	}
	v := *t.latest
	return &v
}

// LiveSnapshot derives the in-progress view of the active session. It
// returns nil when idle or when the session's hostname did not resolve.
func (t *Tracker) LiveSnapshot() *LiveSnapshot {
	if t.active == nil || t.active.Hostname == "" {
		return nil
	}
	now := t.now()
	score := t.LatestScore()
	if avg, ok := meanScore(t.samples); ok {
		score = &avg
	}
	return &LiveSnapshot{
		Hostname:     t.active.Hostname,
		URL:          t.active.URL,
		StartTime:    t.active.StartTime,
		EndTime:      now,
		Duration:     now.Sub(t.active.StartTime).Seconds(),
		FocusScore:   score,
		FocusSamples: t.Samples(),
		IsLive:       true,
	}
}
