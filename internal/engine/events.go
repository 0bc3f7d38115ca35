package engine

import (
	"context"

	"github.com/fakeyudi/sitefocus/internal/sample"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

// event is one queued input, applied on the Run goroutine.
type event interface {
	handle(ctx context.Context, e *Engine)
}

type tabActivated struct{ tab session.Tab }

func (ev tabActivated) handle(ctx context.Context, e *Engine) {
	e.apply(ctx, e.tracker.TabActivated(ev.tab))
}

type tabUpdated struct {
	tab            session.Tab
	urlChanged     bool
	statusComplete bool
}

func (ev tabUpdated) handle(ctx context.Context, e *Engine) {
	e.apply(ctx, e.tracker.TabUpdated(ev.tab, ev.urlChanged, ev.statusComplete))
}

type tabRemoved struct{ tabID int }

func (ev tabRemoved) handle(ctx context.Context, e *Engine) {
	e.apply(ctx, e.tracker.TabRemoved(ev.tabID))
}

type windowFocusChanged struct{ tab *session.Tab }

func (ev windowFocusChanged) handle(ctx context.Context, e *Engine) {
	e.apply(ctx, e.tracker.WindowFocusChanged(ev.tab))
}

type suspending struct{}

func (suspending) handle(ctx context.Context, e *Engine) {
	e.apply(ctx, e.tracker.Suspend())
}

type statusChanged struct {
	status stream.Status
	url    string
}

// handle records the new status. A dropped stream never ends a session.
func (ev statusChanged) handle(_ context.Context, e *Engine) {
	e.status = ev.status
	if ev.url != "" {
		e.streamURL = ev.url
	}
	e.logger.Debug().Str("status", string(ev.status)).Str("url", ev.url).Msg("stream status")
	e.hub.Publish(Message{Type: TypeConnectionStatus, Payload: ConnectionStatus{Status: ev.status, URL: ev.url}})
}

type sampleArrived struct{ s sample.Sample }

func (ev sampleArrived) handle(_ context.Context, e *Engine) {
	e.addSample(ev.s)
}

type currentFocusQuery struct{ reply chan CurrentFocus }

func (ev currentFocusQuery) handle(_ context.Context, e *Engine) {
	ev.reply <- e.currentFocus()
}
