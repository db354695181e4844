package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"inventory/app"
	"inventory/config"
	"inventory/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(context.Background()))
}

// run returns the process exit status: 1 when MONGO_URI is missing or the
// database cannot be reached, 0 after a clean shutdown.
func run(ctx context.Context) int {
	config.LoadEnv()

	log := logger.New(config.GetEnv("NODE_ENV", "development"), config.GetEnv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}
