package cmd

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/sitefocus/internal/client"
	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/server"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/tui"
)

func next(t *testing.T, feed <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg, ok := <-feed:
		if !ok {
			t.Fatal("feed closed early")
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the feed")
		return nil
	}
}

func TestPumpFeedsDashboard(t *testing.T) {
	store := session.NewMemoryStore()
	eng := engine.New(engine.Deps{Store: store})
	engCtx, stopEngine := context.WithCancel(context.Background())
	engDone := make(chan struct{})
	go func() {
		defer close(engDone)
		_ = eng.Run(engCtx)
	}()
	srv := httptest.NewServer(server.NewRouter(&server.Deps{Engine: eng, Store: store}))
	t.Cleanup(func() {
		srv.Close()
		stopEngine()
		<-engDone
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := make(chan tea.Msg, 16)
	go pump(ctx, client.New(srv.URL), feed)

	if _, ok := next(t, feed).(tui.FocusMsg); !ok {
		t.Fatal("first message is not a focus snapshot")
	}
	if _, ok := next(t, feed).(tui.LogMsg); !ok {
		t.Fatal("second message is not the session log")
	}

	deadline := time.Now().Add(3 * time.Second)
	for eng.Hub().Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pump never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	eng.TabActivated(session.Tab{ID: 1, URL: "https://docs.example/"})
	eng.SampleArrived(sample.Sample{Timestamp: time.Now(), FocusScore: 80})
	msg, ok := next(t, feed).(tui.BroadcastMsg)
	if !ok || msg.Type != engine.TypeFocusUpdate {
		t.Fatalf("want focus-update broadcast, got %#v", msg)
	}

	eng.TabRemoved(1)
	msg, ok = next(t, feed).(tui.BroadcastMsg)
	if !ok || msg.Type != engine.TypeFocusStop {
		t.Fatalf("want focus-stop broadcast, got %#v", msg)
	}
	if _, ok := next(t, feed).(tui.LogMsg); !ok {
		t.Fatal("session log was not refreshed after focus-stop")
	}

	cancel()
	deadline = time.Now().Add(3 * time.Second)
	for {
		select {
		case _, ok := <-feed:
			if !ok {
				return
			}
		case <-time.After(time.Until(deadline)):
			t.Fatal("feed not closed after cancel")
		}
	}
}
