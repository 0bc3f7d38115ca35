// Package client talks to a running sitefocus daemon over its HTTP bridge.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/session"
)

// ErrNotRunning is returned when no daemon answers at the configured address.
var ErrNotRunning = errors.New("sitefocus daemon is not running")

// Client is a thin wrapper around the daemon's REST and websocket API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for a daemon listening on addr ("host:port" or a
// full http URL).
func New(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimSuffix(base, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// CurrentFocus fetches the daemon's in-memory focus state.
func (c *Client) CurrentFocus(ctx context.Context) (engine.CurrentFocus, error) {
	var out engine.CurrentFocus
	err := c.do(ctx, http.MethodGet, "/api/focus", nil, &out)
	return out, err
}

// Sessions fetches the stored session log, oldest first.
func (c *Client) Sessions(ctx context.Context) ([]session.FinalizedSession, error) {
	var out []session.FinalizedSession
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out)
	return out, err
}

// Stats fetches the per-host summary.
func (c *Client) Stats(ctx context.Context) ([]session.SiteStats, error) {
	var out []session.SiteStats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out)
	return out, err
}

// Clear empties the stored session log.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions", nil, nil)
}

// SetStreamURL asks the daemon to persist url and reconnect.
func (c *Client) SetStreamURL(ctx context.Context, url string) error {
	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	err := c.do(ctx, http.MethodPut, "/api/stream-url", map[string]string{"url": url}, &out)
	if err != nil && out.Error != "" {
		return errors.New(out.Error)
	}
	return err
}

// Subscribe streams daemon broadcasts to fn until ctx is cancelled or the
// connection drops. Payloads arrive as engine.FocusUpdate or
// engine.ConnectionStatus; focus-stop carries none.
func (c *Client) Subscribe(ctx context.Context, fn func(engine.Message)) error {
	wsURL := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		msg, err := DecodeMessage(data)
		if err != nil {
			continue
		}
		fn(msg)
	}
}

// DecodeMessage parses one broadcast frame into an engine.Message with a
// typed payload.
func DecodeMessage(data []byte) (engine.Message, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return engine.Message{}, err
	}
	msg := engine.Message{Type: env.Type}
	switch env.Type {
	case engine.TypeFocusUpdate:
		var p engine.FocusUpdate
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return engine.Message{}, err
		}
		msg.Payload = p
	case engine.TypeConnectionStatus:
		var p engine.ConnectionStatus
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return engine.Message{}, err
		}
		msg.Payload = p
	case engine.TypeFocusStop:
	default:
		return engine.Message{}, fmt.Errorf("unknown message type %q", env.Type)
	}
	return msg, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer resp.Body.Close()

	if out != nil {
		// Error replies may still carry a decodable body.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF && resp.StatusCode < 300 {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
