package cmd

import (
	"context"
	"errors"

	"github.com/fakeyudi/sitefocus/internal/client"
	"github.com/fakeyudi/sitefocus/internal/session"
)

// sessionLog is the read/clear view of the stored sessions that the
// offline commands need.
type sessionLog interface {
	List(ctx context.Context) ([]session.FinalizedSession, error)
	Clear(ctx context.Context) error
}

// daemonLog reads the log through a running daemon.
type daemonLog struct{ c *client.Client }

func (d daemonLog) List(ctx context.Context) ([]session.FinalizedSession, error) {
	return d.c.Sessions(ctx)
}

func (d daemonLog) Clear(ctx context.Context) error { return d.c.Clear(ctx) }

// openLog prefers a running daemon, which owns the store, and falls back
// to opening the configured store directly. The returned func releases it.
func openLog(ctx context.Context) (sessionLog, func(), error) {
	cfg := GetConfig()
	c := client.New(cfg.ListenAddr)
	if _, err := c.CurrentFocus(ctx); err == nil {
		return daemonLog{c}, func() {}, nil
	} else if !errors.Is(err, client.ErrNotRunning) {
		return nil, nil, err
	}

	store, err := session.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = session.Close(store) }, nil
}
