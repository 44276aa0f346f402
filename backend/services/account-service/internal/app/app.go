package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"greenhouse/backend/libs/httpserver"
	appconfig "greenhouse/backend/services/account-service/internal/config"
	"greenhouse/backend/services/account-service/internal/db"
	router "greenhouse/backend/services/account-service/internal/http"
	"greenhouse/backend/services/account-service/internal/http/handlers"
	"greenhouse/backend/services/account-service/internal/password"
	"greenhouse/backend/services/account-service/internal/repository"
	"greenhouse/backend/services/account-service/internal/service"
)

// App wires dependencies for the account service.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	if cfg.Database.Migrate {
		version, err := db.Migrate(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("database schema ready", zap.Uint("version", version))
	}

	sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(cfg.Password.Scheme)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	accounts := service.NewAccountService(repository.NewUserRepository(sqlDB, cfg.Database.QueryTimeout), hasher, logger)
	registry := service.NewRegistryService(
		repository.NewDeviceRepository(sqlDB, cfg.Database.QueryTimeout),
		repository.NewPlantRepository(sqlDB, cfg.Database.QueryTimeout),
		logger,
	)

	routes := router.Routes{
		Register: handlers.NewRegisterHandler(accounts, logger),
		Login:    handlers.NewLoginHandler(accounts, logger),
		Device:   handlers.NewDeviceHandler(registry, logger),
		Plants:   handlers.NewPlantsHandler(registry, logger),
		Plant:    handlers.NewPlantHandler(registry, logger),
		Health:   handlers.NewHealthHandler(sqlDB.PingContext),
	}

	server := httpserver.NewServer(cfg.HTTPAddress(), router.NewRouter(routes), logger)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
