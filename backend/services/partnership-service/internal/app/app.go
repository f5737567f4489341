package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	libdb "evcharge/backend/libs/db"
	libhttp "evcharge/backend/libs/httpserver"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/libs/middleware"
	"evcharge/backend/libs/ratelimit"
	libredis "evcharge/backend/libs/redis"
	"evcharge/backend/services/partnership-service/internal/config"
	httpserver "evcharge/backend/services/partnership-service/internal/http"
	"evcharge/backend/services/partnership-service/internal/http/handlers"
	"evcharge/backend/services/partnership-service/internal/repository"
	"evcharge/backend/services/partnership-service/internal/service"
)

const serviceName = "partnership-service"

// App wires dependencies for the partnership service.
type App struct {
	server *libhttp.Server
	db     *sql.DB
	redis  *goredis.Client
	logger *zap.Logger
}

// New builds the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	rdb, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	leadSvc := service.NewLeadService(repository.NewLeadRepository(sqlDB), service.NewMetrics(registry), logger)
	errs := handlers.NewErrorWriter(logger, cfg.Debug())
	tokens := auth.NewTokenService(cfg.JWT.Secret, 0)

	formLimiter := ratelimit.NewLimiter(rdb, "rl:partnership:form", cfg.FormLimit.Max, cfg.FormLimit.Window)
	readLimiter := ratelimit.NewLimiter(rdb, "rl:partnership:read", cfg.ReadLimit.Max, cfg.ReadLimit.Window)

	routes := httpserver.Routes{
		Health: libhttp.HealthHandler(libhttp.HealthInfo{
			Service:     serviceName,
			Environment: cfg.Env,
			Version:     cfg.Version,
			Started:     time.Now(),
		}),
		Metrics:      metrics.Handler(registry),
		Submit:       handlers.NewSubmitHandler(leadSvc, errs),
		List:         handlers.NewListHandler(leadSvc, errs),
		Stats:        handlers.NewStatsHandler(leadSvc, errs),
		Export:       handlers.NewExportHandler(leadSvc, errs),
		Get:          handlers.NewGetHandler(leadSvc, errs),
		UpdateStatus: handlers.NewUpdateStatusHandler(leadSvc, errs),
		Update:       handlers.NewUpdateHandler(leadSvc, errs),
		Delete:       handlers.NewDeleteHandler(leadSvc, errs),
	}
	guards := httpserver.Guards{
		Protect:   auth.Protect(tokens, repository.NewUserRepository(sqlDB), logger),
		Admin:     auth.Authorize(auth.RoleAdmin),
		FormLimit: middleware.RateLimit(formLimiter, "Too many form submissions, please try again in 5 minutes.", middleware.ClientIP, logger),
		ReadLimit: middleware.RateLimit(readLimiter, "", middleware.ClientIP, logger),
	}

	router := httpserver.NewRouter(routes, guards, metrics.NewHTTP(registry, serviceName))
	handler := middleware.Chain(router, middleware.Recovery(logger), middleware.Logging(logger))

	return &App{
		server: libhttp.NewServer(cfg.HTTPAddress(), handler, logger),
		db:     sqlDB,
		redis:  rdb,
		logger: logger,
	}, nil
}

// Run serves HTTP traffic until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
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
