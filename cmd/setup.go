package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure sitefocus (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before a config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

// runSetup runs the interactive setup wizard and saves the global config
// and stream URL.
func runSetup(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	existing, err := config.LoadGlobal()
	if err != nil {
		// A broken file is replaced by whatever the wizard collects.
		d := config.Defaults()
		existing = &d
	}
	settings, err := config.DefaultSettings()
	if err != nil {
		return err
	}
	streamURL, err := settings.LoadStreamURL()
	if err != nil {
		streamURL = ""
	}

	in := cmd.InOrStdin()
	if in == nil {
		in = os.Stdin
	}
	res, err := config.RunSetup(in, out, *existing, streamURL)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := config.SaveGlobal(res.Config); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	if err := settings.SaveStreamURL(res.StreamURL); err != nil {
		return fmt.Errorf("saving stream url: %w", err)
	}
	fmt.Fprintln(out, "  ✓ Config saved.")
	fmt.Fprintln(out, "  Setup complete. Run 'sitefocus serve' to start tracking.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
