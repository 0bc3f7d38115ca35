package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/client"
	"github.com/fakeyudi/sitefocus/internal/report"
	"github.com/fakeyudi/sitefocus/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the running daemon is tracking right now",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(GetConfig().ListenAddr)
		cf, err := c.CurrentFocus(cmd.Context())
		if err != nil {
			if errors.Is(err, client.ErrNotRunning) {
				return fmt.Errorf("%w at %s (start it with 'sitefocus serve')", client.ErrNotRunning, GetConfig().ListenAddr)
			}
			return err
		}

		if cf.CurrentURL == "" {
			cmd.Println("Tracking: nothing")
		} else {
			cmd.Printf("Tracking: %s\n", cf.CurrentURL)
			if cf.LiveSession != nil {
				cmd.Printf("Site: %s\n", cf.LiveSession.Hostname)
				cmd.Printf("Duration: %s\n", report.FormatDuration(cf.LiveSession.Duration))
			}
		}

		score := cf.LatestFocusScore
		if cf.LiveSession != nil && cf.LiveSession.FocusScore != nil {
			score = cf.LiveSession.FocusScore
		}
		if score != nil {
			cmd.Printf("Focus: %d (%s)\n", *score, session.LiveLabel(*score))
		} else {
			cmd.Println("Focus: --")
		}
		cmd.Printf("Samples: %d\n", len(cf.Samples))
		cmd.Printf("EEG: %s (%s)\n", cf.EEGStatus, cf.StreamURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
