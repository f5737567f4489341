package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	libdb "evcharge/backend/libs/db"
	libhttp "evcharge/backend/libs/httpserver"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/libs/middleware"
	appconfig "evcharge/backend/services/auth-service/internal/config"
	httpserver "evcharge/backend/services/auth-service/internal/http"
	"evcharge/backend/services/auth-service/internal/http/handlers"
	"evcharge/backend/services/auth-service/internal/password"
	"evcharge/backend/services/auth-service/internal/repository"
	"evcharge/backend/services/auth-service/internal/service"
)

const serviceName = "auth-service"

// App wires dependencies for the auth service.
type App struct {
	server *libhttp.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	userRepo := repository.NewUserRepository(sqlDB)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration())
	authSvc := service.NewAuthService(userRepo, password.NewBcryptHasher(cfg.BcryptCost), tokens, logger)
	errs := handlers.NewErrorWriter(logger, cfg.Debug())

	routes := httpserver.Routes{
		Health: libhttp.HealthHandler(libhttp.HealthInfo{
			Service:     serviceName,
			Environment: cfg.Env,
			Version:     cfg.Version,
			Started:     time.Now(),
		}),
		Metrics:       metrics.Handler(registry),
		Register:      handlers.NewRegisterHandler(authSvc, errs),
		Login:         handlers.NewLoginHandler(authSvc, errs),
		Profile:       handlers.NewProfileHandler(authSvc, errs),
		UpdateProfile: handlers.NewUpdateProfileHandler(authSvc, errs),
	}

	router := httpserver.NewRouter(routes, auth.Protect(tokens, userRepo, logger), metrics.NewHTTP(registry, serviceName))
	handler := middleware.Chain(router, middleware.Recovery(logger), middleware.Logging(logger))

	return &App{
		server: libhttp.NewServer(cfg.HTTPAddress(), handler, logger),
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
