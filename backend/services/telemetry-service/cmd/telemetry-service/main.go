package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"greenhouse/backend/libs/logging"
	"greenhouse/backend/services/telemetry-service/internal/app"
	"greenhouse/backend/services/telemetry-service/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("telemetry-service")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init application", zap.Error(err))
	}
	defer application.Close()

	logger.Info("telemetry service starting",
		zap.String("addr", cfg.HTTPAddress()),
		zap.Bool("mqtt", cfg.MQTT.Enabled),
		zap.Duration("write_interval", cfg.Ingest.WriteInterval),
		zap.String("gate_scope", cfg.Ingest.GateScope),
	)
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("application stopped with error", zap.Error(err))
	}
}
