package cmd

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, release, err := openLog(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		if err := log.Clear(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("session log cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
