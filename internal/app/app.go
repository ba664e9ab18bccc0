package app

import (
	"context"
	"database/sql"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargegrid/internal/aggregator"
	"chargegrid/internal/archive"
	"chargegrid/internal/clients"
	"chargegrid/internal/config"
	httpserver "chargegrid/internal/http"
	"chargegrid/internal/http/handlers"
	"chargegrid/internal/http/middleware"
	"chargegrid/internal/orchestrator"
	"chargegrid/internal/providers"
	"chargegrid/internal/store"
)

// App wires the chargegrid dependency graph. All services are
// explicitly constructed and injected; there are no process-wide
// singletons.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logger.Info("using in-memory store")
		st = store.NewMemoryStore()
	default:
		client, err := store.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redisClient = client
		st = store.NewRedisStore(client)
	}

	var sessionArchive *archive.SessionArchive
	if strings.TrimSpace(cfg.Archive.DSN) != "" {
		db, err := archive.NewPostgresDB(cfg.Archive.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		sessionArchive = archive.NewSessionArchive(db)
	} else {
		logger.Warn("no archive dsn configured, session history disabled")
	}

	httpClient := providers.NewDefaultHTTPClient(cfg.Providers.Timeout)
	adapters := []providers.Adapter{
		providers.NewChargePoint(cfg.Providers.ChargePoint.BaseURL, cfg.Providers.ChargePoint.APIKey, httpClient),
		providers.NewEVgo(cfg.Providers.EVgo.BaseURL, cfg.Providers.EVgo.APIKey, httpClient),
		providers.NewElectrifyAmerica(cfg.Providers.ElectrifyAmerica.BaseURL, cfg.Providers.ElectrifyAmerica.APIKey, httpClient),
	}

	agg := aggregator.New(adapters, st, cfg.Providers.Timeout, logger)
	orc := orchestrator.New(agg, st, archiveOrNil(sessionArchive), logger)
	places := clients.NewPlacesClient(cfg.Places.BaseURL, cfg.Places.APIKey, httpClient)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Stations:      handlers.NewStationsHandlers(agg, places, st, logger),
		Sessions:      handlers.NewSessionsHandlers(orc, sessionArchive, logger),
		Notifications: handlers.NewNotificationsHandler(st, logger),
		Health:        handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(cfg.JWT.Secret))

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return a, nil
}

// archiveOrNil avoids storing a typed-nil pointer in the
// orchestrator's Archive interface.
func archiveOrNil(arch *archive.SessionArchive) orchestrator.Archive {
	if arch == nil {
		return nil
	}
	return arch
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
