package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libhttp "evcharge/backend/libs/httpserver"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/libs/middleware"
	"evcharge/backend/libs/ratelimit"
	libredis "evcharge/backend/libs/redis"
	"evcharge/backend/services/api-gateway/internal/config"
	httpserver "evcharge/backend/services/api-gateway/internal/http"
	"evcharge/backend/services/api-gateway/internal/http/handlers"
	"evcharge/backend/services/api-gateway/internal/proxy"
)

const serviceName = "api-gateway"

// App wires API gateway dependencies.
type App struct {
	server  *libhttp.Server
	handler http.Handler
	redis   *goredis.Client
	logger  *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	rdb, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	clientIP := middleware.EdgeClientIP(cfg.TrustedProxies())
	transport := proxy.NewTransport(cfg.Proxy.Timeout)
	upstreams := []proxy.Upstream{
		{Name: "Auth", BaseURL: cfg.Services.AuthURL},
		{Name: "Booking", BaseURL: cfg.Services.BookingURL},
		{Name: "Partnership", BaseURL: cfg.Services.PartnershipURL},
	}
	proxies := make(map[string]http.Handler, len(upstreams))
	for _, up := range upstreams {
		rp, err := proxy.New(up, transport, clientIP, logger)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		proxies[up.Name] = rp
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	limiter := ratelimit.NewLimiter(rdb, "rl:gateway", cfg.RateLimit.Max, cfg.RateLimit.Window)

	routes := httpserver.Routes{
		Health: libhttp.HealthHandler(libhttp.HealthInfo{
			Service:     serviceName,
			Environment: cfg.Env,
			Version:     cfg.Version,
			Started:     time.Now(),
		}),
		Metrics:     metrics.Handler(registry),
		Index:       handlers.NewIndexHandler(cfg.Version, handlers.Catalogue),
		Auth:        proxies["Auth"],
		Booking:     proxies["Booking"],
		Partnership: proxies["Partnership"],
	}
	guards := httpserver.Guards{
		CORS:      middleware.CORS(cfg.AllowedOrigins()),
		RateLimit: middleware.RateLimit(limiter, "", clientIP, logger),
	}

	router := httpserver.NewRouter(routes, guards, metrics.NewHTTP(registry, serviceName))
	handler := middleware.Chain(router, middleware.Recovery(logger), middleware.Logging(logger))

	logger.Info("gateway upstreams configured",
		zap.String("auth", cfg.Services.AuthURL),
		zap.String("booking", cfg.Services.BookingURL),
		zap.String("partnership", cfg.Services.PartnershipURL),
		zap.Int("rate_limit", cfg.RateLimit.Max),
		zap.Duration("rate_window", cfg.RateLimit.Window),
		zap.Strings("trusted_proxies", cfg.Proxy.Trusted),
	)

	return &App{
		server:  libhttp.NewServer(cfg.HTTPAddress(), handler, logger),
		handler: handler,
		redis:   rdb,
		logger:  logger,
	}, nil
}

// Run starts serving HTTP traffic.
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
}
