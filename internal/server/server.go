// Package server is the daemon's local HTTP bridge. The browser extension
// posts tab events to it, and UIs read focus state and subscribe to live
// broadcasts over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/observability"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

// Event types accepted by POST /api/events.
const (
	EventTabActivated       = "tab-activated"
	EventTabUpdated         = "tab-updated"
	EventTabRemoved         = "tab-removed"
	EventWindowFocusChanged = "window-focus-changed"
	EventSuspend            = "suspend"
)

// Event is the body of POST /api/events.
type Event struct {
	Type           string       `json:"type"`
	Tab            *session.Tab `json:"tab,omitempty"`
	URLChanged     bool         `json:"urlChanged,omitempty"`
	StatusComplete bool         `json:"statusComplete,omitempty"`
	TabID          int          `json:"tabId,omitempty"`
}

// StreamURLResult is the reply to PUT /api/stream-url.
type StreamURLResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Deps are the collaborators of the router.
type Deps struct {
	Engine  *engine.Engine
	Store   session.Store
	Logger  *zerolog.Logger
	Metrics *observability.Metrics
}

// NewRouter returns the bridge's handler.
func NewRouter(d *Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = observability.NopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/events", d.handleEvent)
	mux.HandleFunc("GET /api/focus", d.handleFocus)
	mux.HandleFunc("PUT /api/stream-url", d.handleStreamURL)
	mux.HandleFunc("GET /api/sessions", d.handleListSessions)
	mux.HandleFunc("DELETE /api/sessions", d.handleClearSessions)
	mux.HandleFunc("GET /api/stats", d.handleStats)
	mux.HandleFunc("GET /api/ws", d.handleWS)

	return withAccessLog(d.Logger, mux)
}

func (d *Deps) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}
	needTab := func() bool {
		if ev.Tab == nil {
			writeError(w, http.StatusBadRequest, "MISSING_TAB", ev.Type+" requires a tab", nil)
			return false
		}
		return true
	}
	switch ev.Type {
	case EventTabActivated:
		if !needTab() {
			return
		}
		d.Engine.TabActivated(*ev.Tab)
	case EventTabUpdated:
		if !needTab() {
			return
		}
		d.Engine.TabUpdated(*ev.Tab, ev.URLChanged, ev.StatusComplete)
	case EventTabRemoved:
		d.Engine.TabRemoved(ev.TabID)
	case EventWindowFocusChanged:
		d.Engine.WindowFocusChanged(ev.Tab)
	case EventSuspend:
		d.Engine.ProcessSuspending()
	default:
		writeError(w, http.StatusBadRequest, "UNKNOWN_EVENT", "unknown event type", map[string]string{"type": ev.Type})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (d *Deps) handleFocus(w http.ResponseWriter, r *http.Request) {
	cf, err := d.Engine.CurrentFocus(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, cf)
}

func (d *Deps) handleStreamURL(w http.ResponseWriter, r *http.Request) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, StreamURLResult{Error: "Invalid URL"})
		return
	}
	if err := d.Engine.SetStreamURL(in.URL); err != nil {
		if errors.Is(err, stream.ErrInvalidURL) {
			writeJSON(w, http.StatusBadRequest, StreamURLResult{Error: "Invalid URL"})
			return
		}
		d.Logger.Error().Err(err).Msg("set stream url")
		writeJSON(w, http.StatusInternalServerError, StreamURLResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StreamURLResult{OK: true})
}

func (d *Deps) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := d.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE", err.Error(), nil)
		return
	}
	if sessions == nil {
		sessions = []session.FinalizedSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (d *Deps) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := d.Store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE", err.Error(), nil)
		return
	}
	d.Logger.Info().Msg("session log cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (d *Deps) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := d.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE", err.Error(), nil)
		return
	}
	stats := session.Summarize(sessions)
	if stats == nil {
		stats = []session.SiteStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS streams hub broadcasts to one client until either side goes
// away. A client that falls behind misses messages.
func (d *Deps) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	hub := d.Engine.Hub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		// keepalive reads to detect client close
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	d.Logger.Debug().Str("remote", r.RemoteAddr).Msg("ws subscriber connected")
	for {
		select {
		case <-ctx.Done():
			d.Logger.Debug().Str("remote", r.RemoteAddr).Msg("ws subscriber gone")
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := c.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiErrorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	writeJSON(w, status, apiErrorBody{Error: apiError{Code: code, Message: message, Details: details}})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withAccessLog(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The upgrader needs the raw writer to hijack the connection.
		if r.URL.Path == "/api/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}
