package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carehub/internal/api/router"
	"github.com/wolfman30/carehub/internal/app/bootstrap"
	"github.com/wolfman30/carehub/internal/bookings"
	appconfig "github.com/wolfman30/carehub/internal/config"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/carehub/internal/http/middleware"
	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/internal/observability/metrics"
	"github.com/wolfman30/carehub/internal/sessions"
	"github.com/wolfman30/carehub/internal/verticals"
	"github.com/wolfman30/carehub/pkg/logging"
)

func main() {
	// Optional .env for local runs.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting carehub API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, flowMetrics := setupMetrics()
	bookingService := bootstrap.BuildBookingService(cfg, pool, logger)
	notifications := bootstrap.BuildNotificationStore(cfg, redisClient, logger)
	chatService := bootstrap.BuildChatService(cfg, redisClient, notifications, flowMetrics, logger)

	catalog := verticals.NewRegistry(verticals.Options{AssignmentDelay: cfg.AssignmentDelay})
	matcher := matching.NewSimulated(matching.WithLogger(logger))
	registry := sessions.NewRegistry(catalog,
		newFlowFactory(bookingService, notifications, matcher, flowMetrics, logger),
		sessions.Config{IdleTTL: cfg.FlowIdleTTL, Logger: logger},
	)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	// Stopped after the server drains.
	supervisor := bootstrap.NewSupervisor(context.Background(), logger)
	supervisor.Go("flow-sweeper", func(ctx context.Context) { registry.Run(ctx, cfg.FlowSweepInterval) })
	supervisor.Go("rate-limit-sweeper", limiter.Run)

	handler := router.New(&router.Config{
		Logger:             logger,
		Flows:              handlers.NewFlowsHandler(registry, catalog, notifications, logger).WithConfirmTimeout(cfg.ConfirmationTimeout),
		Bookings:           handlers.NewBookingsHandler(bookingService, logger),
		Chat:               handlers.NewChatHandler(chatService, logger),
		ProviderDashboard:  handlers.NewProviderDashboardHandler(bootstrap.OpenSQLDB(pool), bookingService, logger),
		ProviderJWTSecret:  cfg.ProviderJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		HealthChecks:       healthChecks(pool, redisClient),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // chat streams stay open for the whole reply
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	supervisor.Stop(10 * time.Second)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the flow collectors on a dedicated registry.
func setupMetrics() (http.Handler, *metrics.FlowMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	flowMetrics := metrics.NewFlowMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), flowMetrics
}

func newFlowFactory(persister *bookings.Service, notifier notify.Notifier, matcher matching.Service, observer flow.Observer, logger *logging.Logger) sessions.Factory {
	return func(def *flow.Definition, userID string) *flow.Flow {
		return flow.New(def, userID, persister,
			flow.WithLogger(logger),
			flow.WithNotifier(notifier),
			flow.WithMatcher(matcher),
			flow.WithObserver(observer),
		)
	}
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
