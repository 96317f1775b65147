package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"timetodo_backend/internal/app"
	"timetodo_backend/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("Application error", "error", err)
		os.Exit(1)
	}
}
