package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/config"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

var streamURLCmd = &cobra.Command{
	Use:   "stream-url [url]",
	Short: "Print or change the EEG stream endpoint",
	Long: "Without an argument, prints the configured EEG stream endpoint.\n" +
		"With one, validates and saves it; a running daemon reconnects on its own.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.DefaultSettings()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			url, err := settings.LoadStreamURL()
			if err != nil {
				return err
			}
			cmd.Println(url)
			return nil
		}

		url := args[0]
		if err := stream.ValidateURL(url); err != nil {
			return err
		}
		if err := settings.SaveStreamURL(url); err != nil {
			return err
		}
		cmd.Printf("stream url set to %s\n", url)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamURLCmd)
}
