// Package stream owns the connection to the live EEG engagement websocket.
//
// A Manager dials the configured endpoint, turns each text frame into a
// sample.Sample and hands it to a Sink. Any dial failure or dropped
// connection is followed by a fixed reconnect delay, forever, with a single
// goroutine and a single timer so that attempts never overlap.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/sitefocus/internal/observability"
	"github.com/fakeyudi/sitefocus/internal/sample"
)

// DefaultURL is the stream endpoint used until the user configures another.
const DefaultURL = "wss://stream2.mindfulmakers.xyz"

// ReconnectDelay is the pause between a failure and the next attempt.
const ReconnectDelay = 5 * time.Second

// ErrInvalidURL is returned for endpoints that are not websocket URLs.
var ErrInvalidURL = errors.New("invalid URL")

// Status is the connection state reported to the rest of the daemon.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// Sink receives the manager's output. Calls come from the manager's
// goroutine and must not block for long.
type Sink interface {
	ConnectionStatusChanged(status Status, url string)
	SampleArrived(s sample.Sample)
}

// ValidateURL accepts ws:// and wss:// endpoints with a host.
func ValidateURL(raw string) error {
	if !strings.HasPrefix(raw, "ws://") && !strings.HasPrefix(raw, "wss://") {
		return fmt.Errorf("%w: %q is not a websocket endpoint", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithReconnectDelay overrides ReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// WithLogger sets the manager's logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics the manager reports into.
func WithMetrics(mt *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClock sets the time source used for samples without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager maintains the stream connection. Its exported methods are safe
// for concurrent use; Run must be called exactly once.
type Manager struct {
	sink    Sink
	logger  *zerolog.Logger
	metrics *observability.Metrics
	dialer  *websocket.Dialer
	delay   time.Duration
	now     func() time.Time

	mu     sync.Mutex
	url    string
	status Status

	// kick asks the loop to drop the current connection or skip the
	// pending delay and dial again.
	kick chan struct{}
}

// NewManager returns a Manager that will dial endpoint once Run starts.
func NewManager(endpoint string, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		sink:   sink,
		url:    endpoint,
		status: StatusIdle,
		delay:  ReconnectDelay,
		now:    time.Now,
		kick:   make(chan struct{}, 1),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			NetDialContext:   (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = observability.NopLogger()
	}
	if m.metrics == nil {
		m.metrics = observability.NewMetrics()
	}
	return m
}

// URL returns the configured endpoint.
func (m *Manager) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetURL switches to endpoint and reconnects immediately. Invalid
// endpoints are rejected without any change.
func (m *Manager) SetURL(endpoint string) error {
	if err := ValidateURL(endpoint); err != nil {
		return err
	}
	m.mu.Lock()
	m.url = endpoint
	m.mu.Unlock()
	m.Reconnect()
	return nil
}

// Reconnect drops the current connection (or pending delay) and dials again.
func (m *Manager) Reconnect() {
	select {
	case m.kick <- struct{}{}:
	default: // a reconnect is already pending
	}
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	timer := time.NewTimer(m.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		endpoint := m.URL()
		if endpoint == "" {
			m.logger.Warn().Msg("no stream URL configured")
			m.setStatus(StatusIdle, endpoint)
			select {
			case <-ctx.Done():
				return nil
			case <-m.kick:
				continue
			}
		}

		m.setStatus(StatusConnecting, endpoint)
		conn, resp, err := m.dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn().Err(err).Str("url", endpoint).Msg("stream dial failed")
			m.setStatus(StatusError, endpoint)
		} else {
			m.setStatus(StatusConnected, endpoint)
			m.logger.Info().Str("url", endpoint).Msg("stream connected")
			kicked, err := m.consume(ctx, conn)
			m.setStatus(StatusDisconnected, endpoint)
			if ctx.Err() != nil {
				return nil
			}
			if kicked {
				continue
			}
			m.logger.Warn().Err(err).Str("url", endpoint).Msg("stream connection lost")
		}

		m.metrics.ReconnectsTotal.Inc()
		timer.Reset(m.delay)
		select {
		case <-ctx.Done():
			return nil
		case <-m.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// consume reads frames until the connection fails, ctx is cancelled or a
// reconnect is requested. It reports whether a reconnect caused the exit.
func (m *Manager) consume(ctx context.Context, conn *websocket.Conn) (bool, error) {
	var kicked atomic.Bool
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
		case <-m.kick:
			kicked.Store(true)
		case <-done:
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	var err error
	for {
		var mt int
		var data []byte
		mt, data, err = conn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		s, ok := sample.Decode(data, m.now())
		if !ok {
			m.metrics.SamplesTotal.WithLabelValues("rejected").Inc()
			m.logger.Debug().Int("bytes", len(data)).Msg("stream frame rejected")
			continue
		}
		m.sink.SampleArrived(s)
	}
	close(done)
	<-exited
	_ = conn.Close()
	return kicked.Load(), err
}

func (m *Manager) setStatus(s Status, endpoint string) {
	m.mu.Lock()
	changed := m.status != s
	m.status = s
	m.mu.Unlock()
	m.metrics.SetStreamStatus(string(s))
	if changed {
		m.sink.ConnectionStatusChanged(s, endpoint)
	}
}
