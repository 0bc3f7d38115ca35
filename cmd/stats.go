package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/report"
	"github.com/fakeyudi/sitefocus/internal/session"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-site focus averages and recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, release, err := openLog(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		sessions, err := log.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			cmd.Println("no sessions recorded yet")
			return nil
		}

		cmd.Println("Sites:")
		for _, s := range session.Summarize(sessions) {
			cmd.Printf("  %3d  %-6s  %-32s %3d visits  %s\n",
				s.AvgScore, session.Band(s.AvgScore), s.Hostname, s.Visits, report.FormatDuration(s.TotalDuration))
		}
		cmd.Println()
		cmd.Println("Recent:")
		for _, s := range session.Recent(sessions, report.RecentCount) {
			cmd.Printf("  %s  %-32s %3d pts\n", s.EndTime.Local().Format("2006-01-02 15:04"), s.Hostname, s.FocusScore)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
