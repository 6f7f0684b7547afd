package cli

import (
	"fmt"
	"log/slog"
	"os"

	"aptitude-service/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCmd writes leaderboards and attempt history to an XLSX workbook.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		out   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export leaderboards and attempts to XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if !cmd.Flags().Changed("limit") {
				limit = b.service.DefaultLimit()
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.Write(ctx, b.service, f, limit); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("export written", "path", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "aptitude-export.xlsx", "output file")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries per leaderboard")
	return cmd
}
