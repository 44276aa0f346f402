package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greenhouse/backend/libs/httpserver"
	"greenhouse/backend/libs/mqtt"
	libredis "greenhouse/backend/libs/redis"
	"greenhouse/backend/services/telemetry-service/internal/config"
	"greenhouse/backend/services/telemetry-service/internal/db"
	"greenhouse/backend/services/telemetry-service/internal/gate"
	router "greenhouse/backend/services/telemetry-service/internal/http"
	"greenhouse/backend/services/telemetry-service/internal/http/handlers"
	"greenhouse/backend/services/telemetry-service/internal/ingest"
	"greenhouse/backend/services/telemetry-service/internal/latest"
	"greenhouse/backend/services/telemetry-service/internal/live"
	"greenhouse/backend/services/telemetry-service/internal/metrics"
	"greenhouse/backend/services/telemetry-service/internal/repository"
	"greenhouse/backend/services/telemetry-service/internal/service"
)

var errSubscriberDown = errors.New("mqtt subscriber not connected")

// App wires telemetry service dependencies.
type App struct {
	server     *httpserver.Server
	subscriber *ingest.Subscriber
	hub        *live.Hub
	db         *sql.DB
	redis      *goredis.Client
	logger     *zap.Logger
}

// New constructs application components.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
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
	a := &App{db: sqlDB, logger: logger}

	cache, err := a.latestStore(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.NewIngest()
	repo := repository.NewMeasurementRepository(sqlDB, cfg.Database.QueryTimeout)
	a.hub = live.NewHub(0, logger.Named("live"), m.LiveClients)

	writeGate := gate.New(cfg.Ingest.WriteInterval, gate.Scope(cfg.Ingest.GateScope))
	logger.Info("write gate configured",
		zap.Duration("interval", writeGate.Interval()),
		zap.String("scope", string(writeGate.Scope())),
		zap.Bool("enabled", writeGate.Interval() > 0))

	pipeline := ingest.NewPipeline(ingest.PipelineDeps{
		Store:   repo,
		Gate:    writeGate,
		Latest:  cache,
		Live:    a.hub,
		Metrics: m,
		Logger:  logger.Named("ingest"),
	})

	queries := service.NewQueryService(repo, cache, cfg.Redis.LatestTTL, logger)
	if n, err := queries.Warm(ctx); err != nil {
		logger.Warn("latest cache warm-up incomplete", zap.Int("devices", n), zap.Error(err))
	} else {
		logger.Info("latest cache warmed", zap.Int("devices", n))
	}

	checks := map[string]handlers.Check{"database": repo.Ping}
	if cfg.MQTT.Enabled {
		a.subscriber = newSubscriber(cfg.MQTT, pipeline, m, logger)
		checks["mqtt"] = func(context.Context) error {
			if !a.subscriber.Connected() {
				return errSubscriberDown
			}
			return nil
		}
	} else {
		logger.Warn("mqtt ingest disabled; only POST /data accepts measurements")
	}

	routes := router.Routes{
		Ingest:    handlers.NewIngestHandler(pipeline, logger),
		LatestMap: handlers.NewLatestMapHandler(queries, logger),
		Recent:    handlers.NewRecentHandler(queries, logger),
		Latest:    handlers.NewLatestHandler(queries, logger),
		Devices:   handlers.NewDevicesHandler(queries, logger),
		Live:      live.NewHandler(a.hub, logger.Named("live")),
		Health:    handlers.NewHealthHandler(),
		Ready:     handlers.NewReadyHandler(checks),
		Metrics:   m.Handler(),
	}
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router.NewRouter(routes), logger)
	return a, nil
}

func (a *App) latestStore(ctx context.Context, cfg config.RedisConfig) (latest.Store, error) {
	if cfg.Addr == "" {
		a.logger.Info("latest readings kept in memory")
		return latest.NewMemoryStore(cfg.LatestTTL), nil
	}
	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("latest cache: %w", err)
	}
	a.redis = client
	a.logger.Info("latest readings kept in redis", zap.String("addr", cfg.Addr))
	return latest.NewRedisStore(client, cfg.LatestTTL), nil
}

func newSubscriber(cfg config.MQTTConfig, pipeline *ingest.Pipeline, m *metrics.Ingest, logger *zap.Logger) *ingest.Subscriber {
	opts := mqtt.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Username:  cfg.Username,
		Password:  cfg.Password,
		KeepAlive: cfg.KeepAlive,
		UseTLS:    cfg.TLS,
	}
	dial := func(ctx context.Context) (ingest.Session, error) {
		// Client ids are unique per connection.
		o := opts
		o.ClientID = cfg.ClientID + "-" + uuid.NewString()[:8]
		session, err := mqtt.Dial(ctx, o)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return ingest.NewSubscriber(dial, pipeline.HandleMessage, ingest.SubscriberConfig{
		Topic:   cfg.Topic,
		QoS:     byte(cfg.QoS),
		Backoff: cfg.ReconnectBackoff,
	}, logger,
		ingest.WithStateHook(func(s ingest.State) { m.SubscriberState(int(s)) }),
		ingest.WithRetryHook(m.Reconnect),
	)
}

// Run starts the live hub, the broker subscriber and the HTTP server, and
// blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(ctx)
	}()

	if a.subscriber != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.subscriber.Run(ctx); err != nil {
				a.logger.Error("subscriber stopped", zap.Error(err))
			}
		}()
	}

	err := a.server.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
