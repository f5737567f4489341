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
	libredis "evcharge/backend/libs/redis"
	"evcharge/backend/services/booking-service/internal/cache"
	"evcharge/backend/services/booking-service/internal/clients"
	"evcharge/backend/services/booking-service/internal/config"
	httpserver "evcharge/backend/services/booking-service/internal/http"
	"evcharge/backend/services/booking-service/internal/http/handlers"
	"evcharge/backend/services/booking-service/internal/repository"
	"evcharge/backend/services/booking-service/internal/service"
	"evcharge/backend/services/booking-service/internal/ws"
)

const serviceName = "booking-service"

// App wires all dependencies for the booking service.
type App struct {
	server  *libhttp.Server
	db      *sql.DB
	redis   *goredis.Client
	events  *cache.EventBus
	hub     *ws.Hub
	janitor *service.Janitor
	logger  *zap.Logger

	// stop ends websocket connections on shutdown.
	stop context.CancelFunc
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

	stationRepo := repository.NewStationRepository(sqlDB)
	bookingRepo := repository.NewBookingRepository(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)

	stripe := clients.NewStripeClient(cfg.Stripe.BaseURL, cfg.Stripe.SecretKey, clients.NewDefaultHTTPClient(cfg.Stripe.Timeout))
	availability := cache.NewAvailability(rdb, cfg.Cache.TTL)
	events := cache.NewEventBus(rdb, logger)

	stationSvc := service.NewStationService(stationRepo, logger)
	bookingSvc := service.NewBookingService(bookingRepo, stationRepo, stripe, availability, events, service.NewMetrics(registry),
		service.BookingConfig{
			StartHour:    cfg.Booking.StartHour,
			EndHour:      cfg.Booking.EndHour,
			StepMinutes:  cfg.Booking.StepMinutes,
			Currency:     cfg.Booking.Currency,
			ClientURL:    cfg.ClientURL(),
			CheckoutTTL:  cfg.Booking.CheckoutTTL,
			PendingGrace: cfg.Booking.PendingGrace,
			Location:     cfg.Location(),
		}, logger)

	janitor, err := service.NewJanitor(bookingSvc, cfg.Janitor.Interval, cfg.Janitor.Timeout, logger)
	if err != nil {
		_ = rdb.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	errs := handlers.NewErrorWriter(logger, cfg.Debug())
	tokens := auth.NewTokenService(cfg.JWT.Secret, 0)

	wsCtx, stop := context.WithCancel(context.Background())
	hub := ws.NewHub(bookingSvc, logger)
	feed := ws.NewServer(wsCtx, hub, cfg.WebSocket.WriteTimeout, errs.Write, logger)

	routes := httpserver.Routes{
		Health: libhttp.HealthHandler(libhttp.HealthInfo{
			Service:     serviceName,
			Environment: cfg.Env,
			Version:     cfg.Version,
			Started:     time.Now(),
		}),
		Metrics: metrics.Handler(registry),

		ListStations:        handlers.NewListStationsHandler(stationSvc, errs),
		GetStation:          handlers.NewGetStationHandler(stationSvc, errs),
		CreateStation:       handlers.NewCreateStationHandler(stationSvc, errs),
		UpdateStation:       handlers.NewUpdateStationHandler(stationSvc, errs),
		UpdateStationStatus: handlers.NewUpdateStationStatusHandler(stationSvc, errs),
		DeleteStation:       handlers.NewDeleteStationHandler(stationSvc, errs),

		AvailableSlots:      handlers.NewAvailableSlotsHandler(bookingSvc, errs),
		CreateBooking:       handlers.NewCreateBookingHandler(bookingSvc, errs),
		VerifyPayment:       handlers.NewVerifyPaymentHandler(bookingSvc, errs),
		MyBookings:          handlers.NewMyBookingsHandler(bookingSvc, errs),
		GetBooking:          handlers.NewGetBookingHandler(bookingSvc, errs),
		CancelBooking:       handlers.NewCancelBookingHandler(bookingSvc, errs),
		UpdateBookingStatus: handlers.NewUpdateBookingStatusHandler(bookingSvc, errs),

		AvailabilityFeed: feed.HandleAvailability,
	}
	guards := httpserver.Guards{
		Protect: auth.Protect(tokens, userRepo, logger),
		Admin:   auth.Authorize(auth.RoleAdmin),
	}

	router := httpserver.NewRouter(routes, guards, metrics.NewHTTP(registry, serviceName))
	handler := middleware.Chain(router, middleware.Recovery(logger), middleware.Logging(logger))

	return &App{
		server:  libhttp.NewServer(cfg.HTTPAddress(), handler, logger),
		db:      sqlDB,
		redis:   rdb,
		events:  events,
		hub:     hub,
		janitor: janitor,
		logger:  logger,
		stop:    stop,
	}, nil
}

// Run starts the janitor, the availability fan-out and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)
	if err := a.events.Subscribe(ctx, a.hub.Notify); err != nil {
		return err
	}

	a.janitor.Start()
	defer func() {
		if err := a.janitor.Stop(); err != nil {
			a.logger.Warn("failed to stop janitor", zap.Error(err))
		}
	}()

	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.stop()
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
