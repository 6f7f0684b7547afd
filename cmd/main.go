package main

import (
	"log/slog"
	"os"

	"aptitude-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("aptitude-service failed", "error", err)
		os.Exit(1)
	}
}
