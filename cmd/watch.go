package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/client"
	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/tui"
)

// resubscribeDelay is the pause before reconnecting the dashboard feed.
const resubscribeDelay = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open a live dashboard for the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(GetConfig().ListenAddr)
		if _, err := c.CurrentFocus(cmd.Context()); errors.Is(err, client.ErrNotRunning) {
			return fmt.Errorf("%w at %s (start it with 'sitefocus serve')", client.ErrNotRunning, GetConfig().ListenAddr)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		feed := make(chan tea.Msg, 64)
		go pump(ctx, c, feed)
		return tui.Run(feed)
	},
}

// pump feeds the dashboard: a snapshot and the session log, then live
// broadcasts, resubscribing after a dropped connection until ctx ends.
func pump(ctx context.Context, c *client.Client, feed chan<- tea.Msg) {
	defer close(feed)
	send := func(msg tea.Msg) bool {
		select {
		case feed <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}
	refreshLog := func() bool {
		sessions, err := c.Sessions(ctx)
		if err != nil {
			return send(tui.ErrMsg{Err: err})
		}
		return send(tui.LogMsg(sessions))
	}

	for {
		if cf, err := c.CurrentFocus(ctx); err == nil {
			if !send(tui.FocusMsg(cf)) {
				return
			}
		}
		if !refreshLog() {
			return
		}
		err := c.Subscribe(ctx, func(m engine.Message) {
			send(tui.BroadcastMsg(m))
			if m.Type == engine.TypeFocusStop {
				refreshLog()
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil && !send(tui.ErrMsg{Err: err}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
