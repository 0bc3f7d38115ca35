package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fakeyudi/sitefocus/internal/client"
	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/server"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

type nopSettings struct{}

func (nopSettings) SaveStreamURL(string) error { return nil }

func startDaemon(t *testing.T) (*client.Client, *engine.Engine, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	eng := engine.New(engine.Deps{Store: store, Settings: nopSettings{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	srv := httptest.NewServer(server.NewRouter(&server.Deps{Engine: eng, Store: store}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return client.New(srv.URL), eng, store
}

func TestClientRoundTrips(t *testing.T) {
	c, eng, store := startDaemon(t)
	ctx := context.Background()

	eng.TabActivated(session.Tab{ID: 8, URL: "https://c.example/p"})
	cf, err := c.CurrentFocus(ctx)
	if err != nil {
		t.Fatalf("CurrentFocus: %v", err)
	}
	if cf.CurrentTabID != 8 {
		t.Errorf("CurrentTabID: want 8, got %d", cf.CurrentTabID)
	}

	_ = store.Append(ctx, session.FinalizedSession{ID: "x", Hostname: "c.example", Duration: 3, FocusScore: 55})
	all, err := c.Sessions(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("Sessions: %v %+v", err, all)
	}
	stats, err := c.Stats(ctx)
	if err != nil || len(stats) != 1 || stats[0].AvgScore != 55 {
		t.Fatalf("Stats: %v %+v", err, stats)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if all, _ := c.Sessions(ctx); len(all) != 0 {
		t.Errorf("after Clear: %+v", all)
	}

	if err := c.SetStreamURL(ctx, "ftp://x"); err == nil || err.Error() != "Invalid URL" {
		t.Errorf("SetStreamURL invalid: got %v", err)
	}
	if err := c.SetStreamURL(ctx, "ws://127.0.0.1:1"); err != nil {
		t.Errorf("SetStreamURL valid: %v", err)
	}
}

func TestClientNotRunning(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.Listener.Addr().String()
	srv.Close()

	c := client.New(addr)
	if _, err := c.CurrentFocus(context.Background()); !errors.Is(err, client.ErrNotRunning) {
		t.Errorf("want ErrNotRunning, got %v", err)
	}
	if err := c.Subscribe(context.Background(), func(engine.Message) {}); !errors.Is(err, client.ErrNotRunning) {
		t.Errorf("Subscribe: want ErrNotRunning, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	c, eng, _ := startDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan engine.Message, 8)
	errc := make(chan error, 1)
	go func() { errc <- c.Subscribe(ctx, func(m engine.Message) { got <- m }) }()

	deadline := time.Now().Add(5 * time.Second)
	for eng.Hub().Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	eng.ConnectionStatusChanged(stream.StatusConnected, "wss://s.example")
	eng.TabActivated(session.Tab{ID: 1, URL: "https://sub.example"})
	eng.SampleArrived(sample.Sample{FocusScore: 42})

	want := []string{engine.TypeConnectionStatus, engine.TypeFocusUpdate}
	for _, typ := range want {
		select {
		case m := <-got:
			if m.Type != typ {
				t.Fatalf("want %s, got %s", typ, m.Type)
			}
			if u, ok := m.Payload.(engine.FocusUpdate); ok && u.Latest.FocusScore != 42 {
				t.Errorf("payload score: got %d", u.Latest.FocusScore)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Subscribe returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestDecodeMessage(t *testing.T) {
	data, _ := json.Marshal(engine.Message{Type: engine.TypeConnectionStatus,
		Payload: engine.ConnectionStatus{Status: stream.StatusError, URL: "wss://x"}})
	msg, err := client.DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if st, ok := msg.Payload.(engine.ConnectionStatus); !ok || st.Status != stream.StatusError {
		t.Errorf("unexpected payload %#v", msg.Payload)
	}

	if msg, err := client.DecodeMessage([]byte(`{"type":"focus-stop"}`)); err != nil || msg.Payload != nil {
		t.Errorf("focus-stop: %v %#v", err, msg)
	}
	if _, err := client.DecodeMessage([]byte(`{"type":"mystery"}`)); err == nil {
		t.Error("expected an error for an unknown type")
	}
	if _, err := client.DecodeMessage([]byte(`nope`)); err == nil {
		t.Error("expected an error for invalid json")
	}
}
