package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aptitude-service/internal/config"
	transport "aptitude-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config and PORT)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayDone := make(chan struct{})
	if b.relay != nil {
		go func() {
			defer close(relayDone)
			if err := b.relay.Run(ctx, nil, b.service.RefreshFeed); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("leaderboard relay stopped", "error", err)
			}
		}()
	} else {
		close(relayDone)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewServer(b.service).Router(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		slog.Info("starting aptitude service", "port", finalPort, "storage", cfg.Storage.Driver, "redis", cfg.Redis.Addr != "")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	err = server.Shutdown(shutdownCtx)
	cancel()
	<-relayDone
	return err
}
