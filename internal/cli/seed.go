package cli

import (
	"fmt"
	"log/slog"
	"time"

	"aptitude-service/internal/config"
	"aptitude-service/internal/seed"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads tests and users from a YAML bank into persistent storage.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load tests and users from a YAML bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.DriverMemory {
				return fmt.Errorf("seed needs a persistent storage driver, got %q", cfg.Storage.Driver)
			}
			if file == "" {
				file = cfg.Seed.Path
			}

			bank, err := seed.Load(file)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.DriverPostgres {
				if err := runMigrations(ctx, cfg); err != nil {
					return err
				}
			}

			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := seed.Apply(ctx, bank, b.tests, b.users, time.Now()); err != nil {
				return err
			}
			if b.cache != nil {
				for _, t := range bank.Tests {
					if err := b.cache.Invalidate(ctx, t.ID); err != nil {
						slog.Warn("invalidate cached test failed", "test_id", t.ID, "error", err)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed bank path (defaults to seed.path from config)")
	return cmd
}
