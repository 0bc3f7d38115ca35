package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sitefocus/internal/report"
)

var exportFormat string
var exportOutputDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a focus report (markdown, json or yaml)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		format := exportFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		renderer, err := report.ForFormat(format)
		if err != nil {
			return err
		}
		dir := exportOutputDir
		if dir == "" {
			dir = cfg.OutputDir
		}

		log, release, err := openLog(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		sessions, err := log.List(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now()
		data, err := renderer.Render(report.Build(sessions, now))
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path := uniquePath(filepath.Join(dir, "sitefocus-"+now.Format("20060102-150405")), renderer.Ext())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		cmd.Printf("Report written to %s (%d sessions)\n", path, len(sessions))
		return nil
	},
}

// uniquePath returns base+ext, or base-N+ext if that file already exists.
func uniquePath(base, ext string) string {
	path := base + ext
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "output format: markdown, json or yaml (default from config)")
	exportCmd.Flags().StringVarP(&exportOutputDir, "output", "o", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
