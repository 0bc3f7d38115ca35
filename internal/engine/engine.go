// Package engine serializes browser and stream events into the session
// tracker.
//
// The Engine is the tracker's only owner. Every inbound event is queued on
// one channel and applied by the Run goroutine to completion before the next
// one, so the tracker itself needs no locking. Posting is fire-and-forget;
// queries get their answer over a reply channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/sitefocus/internal/observability"
	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

// ErrStopped is returned by queries once Run has exited.
var ErrStopped = errors.New("engine stopped")

// SettingsStore persists the stream endpoint.
type SettingsStore interface {
	SaveStreamURL(url string) error
}

// StreamController is the part of the stream manager the engine drives.
type StreamController interface {
	URL() string
	SetURL(url string) error
}

// FocusUpdate is broadcast for every accepted sample.
type FocusUpdate struct {
	Latest   *sample.Sample        `json:"latest"`
	Samples  []sample.Sample       `json:"samples"`
	URL      string                `json:"url"`
	Hostname string                `json:"hostname"`
	Session  *session.LiveSnapshot `json:"session"`
}

// ConnectionStatus is broadcast when the stream status changes.
type ConnectionStatus struct {
	Status stream.Status `json:"status"`
	URL    string        `json:"url,omitempty"`
}

// CurrentFocus answers the current-focus query from in-memory state.
type CurrentFocus struct {
	CurrentURL       string                `json:"currentUrl"`
	CurrentTabID     int                   `json:"currentTabId"`
	Samples          []sample.Sample       `json:"samples"`
	LatestFocusScore *int                  `json:"latestFocusScore"`
	LiveSession      *session.LiveSnapshot `json:"liveSession"`
	EEGStatus        stream.Status         `json:"eegStatus"`
	StreamURL        string                `json:"streamUrl"`
}

// Deps are the collaborators of an Engine. Store is required.
type Deps struct {
	Store    session.Store
	Settings SettingsStore
	Hub      *Hub
	Logger   *zerolog.Logger
	Metrics  *observability.Metrics
	Now      func() time.Time
}

// Engine owns the session tracker and reacts to events one at a time.
type Engine struct {
	store    session.Store
	settings SettingsStore
	hub      *Hub
	logger   *zerolog.Logger
	metrics  *observability.Metrics
	stream   StreamController

	// Owned by the Run goroutine.
	tracker   *session.Tracker
	status    stream.Status
	streamURL string

	inbox chan event
	done  chan struct{}
}

// New builds an Engine. Call SetStream before Run if stream URL changes
// should reconnect the stream.
func New(d Deps) *Engine {
	e := &Engine{
		store:    d.Store,
		settings: d.Settings,
		hub:      d.Hub,
		logger:   d.Logger,
		metrics:  d.Metrics,
		tracker:  session.NewTracker(d.Now),
		status:   stream.StatusIdle,
		inbox:    make(chan event, 256),
		done:     make(chan struct{}),
	}
	if e.logger == nil {
		e.logger = observability.NopLogger()
	}
	if e.metrics == nil {
		e.metrics = observability.NewMetrics()
	}
	if e.hub == nil {
		e.hub = NewHub(e.metrics.BroadcastDrops.Inc)
	}
	return e
}

// SetStream attaches the stream manager. It must be called before Run.
func (e *Engine) SetStream(s StreamController) {
	e.stream = s
	e.streamURL = s.URL()
}

// Hub returns the broadcast hub.
func (e *Engine) Hub() *Hub { return e.hub }

// Run applies queued events until ctx is cancelled. On the way out the
// active session is ended so it can still be persisted.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; the final write gets its own budget.
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			e.apply(flushCtx, e.tracker.Suspend())
			cancel()
			return nil
		case ev := <-e.inbox:
			ev.handle(ctx, e)
		}
	}
}

// post queues ev. Events posted after Run has exited are dropped.
func (e *Engine) post(ev event) {
	select {
	case e.inbox <- ev:
	case <-e.done:
	}
}

// TabActivated reports a tab switch.
func (e *Engine) TabActivated(tab session.Tab) { e.post(tabActivated{tab}) }

// TabUpdated reports navigation in a tab.
func (e *Engine) TabUpdated(tab session.Tab, urlChanged, statusComplete bool) {
	e.post(tabUpdated{tab, urlChanged, statusComplete})
}

// TabRemoved reports a closed tab.
func (e *Engine) TabRemoved(tabID int) { e.post(tabRemoved{tabID}) }

// WindowFocusChanged reports a focus change; a nil tab means the browser
// lost focus.
func (e *Engine) WindowFocusChanged(tab *session.Tab) { e.post(windowFocusChanged{tab}) }

// ProcessSuspending ends the current session ahead of teardown.
func (e *Engine) ProcessSuspending() { e.post(suspending{}) }

// ConnectionStatusChanged implements stream.Sink.
func (e *Engine) ConnectionStatusChanged(status stream.Status, url string) {
	e.post(statusChanged{status, url})
}

// SampleArrived implements stream.Sink.
func (e *Engine) SampleArrived(s sample.Sample) { e.post(sampleArrived{s}) }

// CurrentFocus returns a consistent view of the in-memory state.
func (e *Engine) CurrentFocus(ctx context.Context) (CurrentFocus, error) {
	reply := make(chan CurrentFocus, 1)
	select {
	case e.inbox <- currentFocusQuery{reply}:
	case <-e.done:
		return CurrentFocus{}, ErrStopped
	case <-ctx.Done():
		return CurrentFocus{}, ctx.Err()
	}
	select {
	case cf := <-reply:
		return cf, nil
	case <-e.done:
		return CurrentFocus{}, ErrStopped
	case <-ctx.Done():
		return CurrentFocus{}, ctx.Err()
	}
}

// SetStreamURL validates url, persists it and reconnects the stream.
// Invalid input changes nothing and wraps stream.ErrInvalidURL.
func (e *Engine) SetStreamURL(url string) error {
	if err := stream.ValidateURL(url); err != nil {
		return err
	}
	if e.settings != nil {
		if err := e.settings.SaveStreamURL(url); err != nil {
			return fmt.Errorf("persist stream url: %w", err)
		}
	}
	if e.stream != nil {
		if err := e.stream.SetURL(url); err != nil {
			return err
		}
	}
	e.logger.Info().Str("url", url).Msg("stream url updated")
	return nil
}

// apply records the side effects of a tracker transition.
func (e *Engine) apply(ctx context.Context, out session.Outcome) {
	if out.Ended != nil {
		e.metrics.ActiveSession.Set(0)
		if fs := out.Finalized; fs != nil {
			e.metrics.SessionsTotal.WithLabelValues("persisted").Inc()
			e.logger.Info().
				Str("host", fs.Hostname).
				Float64("duration", fs.Duration).
				Int("score", fs.FocusScore).
				Int("samples", len(fs.FocusSamples)).
				Msg("session ended")
			if err := e.store.Append(ctx, *fs); err != nil {
				e.metrics.StoreErrors.Inc()
				e.logger.Error().Err(err).Str("host", fs.Hostname).Msg("persist session")
			}
		} else {
			e.metrics.SessionsTotal.WithLabelValues("discarded").Inc()
			e.logger.Debug().Str("url", out.Ended.URL).Msg("session discarded")
		}
		e.hub.Publish(Message{Type: TypeFocusStop})
	}
	if s := out.Started; s != nil {
		e.metrics.ActiveSession.Set(1)
		e.logger.Info().Str("url", s.URL).Int("tab", s.TabID).Msg("session started")
	}
}

func (e *Engine) addSample(s sample.Sample) {
	if !e.tracker.AddSample(s) {
		e.metrics.SamplesTotal.WithLabelValues("dropped").Inc()
		return
	}
	e.metrics.SamplesTotal.WithLabelValues("accepted").Inc()
	active := e.tracker.Active()
	e.hub.Publish(Message{Type: TypeFocusUpdate, Payload: FocusUpdate{
		Latest:   e.tracker.LatestSample(),
		Samples:  e.tracker.Samples(),
		URL:      active.URL,
		Hostname: active.Hostname,
		Session:  e.tracker.LiveSnapshot(),
	}})
}

func (e *Engine) currentFocus() CurrentFocus {
	cf := CurrentFocus{
		Samples:          e.tracker.Samples(),
		LatestFocusScore: e.tracker.LatestScore(),
		LiveSession:      e.tracker.LiveSnapshot(),
		EEGStatus:        e.status,
		StreamURL:        e.streamURL,
	}
	if a := e.tracker.Active(); a != nil {
		cf.CurrentURL = a.URL
		cf.CurrentTabID = a.TabID
	}
	return cf
}
