package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"greenhouse/backend/libs/logging"
	"greenhouse/backend/services/api-gateway/internal/app"
	"greenhouse/backend/services/api-gateway/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("api-gateway")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init api gateway", zap.Error(err))
	}
	defer application.Close()

	logger.Info("api gateway starting",
		zap.String("addr", cfg.HTTPAddress()),
		zap.String("telemetry", cfg.Services.TelemetryURL),
		zap.String("account", cfg.Services.AccountURL),
	)
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("gateway stopped with error", zap.Error(err))
	}
}
