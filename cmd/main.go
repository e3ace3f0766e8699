package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repayment-engine/internal/api"
	mw "repayment-engine/internal/api/middleware"
	"repayment-engine/internal/batch"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/event"
	"repayment-engine/internal/infrastructure/database/postgres"
	"repayment-engine/internal/infrastructure/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	verifierModeFormat = "format"
	verifierModeHTTP   = "http"

	defaultExpireSchedule = "*/5 * * * *"
	defaultExpireTimeout  = 2 * time.Minute
)

// @title Repayment Engine API
// @version 1.0
// @description STK push loan repayment service: customers, payment initiation and PIN confirmation.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	redisClient := initializeRedis(cfg.Redis, logger)
	defer closeRedis(redisClient, logger)

	rabbitConn, publisher := initializePublisher(cfg.RabbitMQ, logger)
	defer closeRabbitMQ(rabbitConn, logger)

	customerService, paymentService, paymentRepo := initializeServices(cfg, dbPool, publisher, logger)

	expireJob := batch.NewExpirePendingJob(paymentRepo, paymentService, cfg.Payment.PendingTTL, cfg.Batch.ExpirePendingBatchSize, logger)
	cronScheduler := startBatchJobs(cfg, logger, expireJob)

	rateLimiter, stopRateLimiter := newRateLimiter(cfg.Server.RateLimit, redisClient, logger)
	defer stopRateLimiter()

	router := api.SetupRouter(api.Dependencies{
		CustomerService: customerService,
		PaymentService:  paymentService,
		RateLimiter:     rateLimiter,
		HealthChecks:    healthChecks(dbPool, redisClient),
	}, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if err := validateConfig(cfg); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func validateConfig(cfg *config.Config) error {
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		return errors.New("server.auth.jwtSecret must be set when auth is enabled")
	}
	if cfg.Payment.CountryCode == "" {
		return errors.New("payment.countryCode must be set")
	}
	if _, err := selectVerifier(cfg.Payment.Verifier); err != nil {
		return err
	}
	return nil
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeRedis returns nil when no address is configured. An unreachable
// server is logged but kept, since the rate limiter fails open.
func initializeRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("Redis not configured, using in-process rate limiter")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis ping failed, continuing", "addr", cfg.Addr, slog.Any("error", err))
	} else {
		logger.Info("Redis connection established", "addr", cfg.Addr)
	}
	return client
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	logger.Info("Closing Redis client...")
	if err := client.Close(); err != nil {
		logger.Error("Error closing Redis client", slog.Any("error", err))
	}
}

func initializePublisher(cfg config.RabbitMQConfig, logger *slog.Logger) (*amqp.Connection, event.EventPublisher) {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled, domain events will be dropped")
		return nil, event.NewNoopPublisher(logger)
	}

	conn, err := connectRabbitMQ(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", slog.Any("error", err))
		_ = conn.Close()
		os.Exit(1)
	}
	return conn, publisher
}

func connectRabbitMQ(cfg config.RabbitMQConfig, logger *slog.Logger) (*amqp.Connection, error) {
	logger.Info("Connecting to RabbitMQ", "exchange", cfg.ExchangeName)
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("RabbitMQ connection established.")

	go func() {
		if closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1)); closeErr != nil {
			logger.Error("RabbitMQ connection closed unexpectedly", slog.Any("error", closeErr))
		}
	}()

	return conn, nil
}

func closeRabbitMQ(conn *amqp.Connection, logger *slog.Logger) {
	if conn == nil {
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := conn.Close(); err != nil {
		logger.Error("Error closing RabbitMQ connection", slog.Any("error", err))
	}
}

func selectVerifier(cfg config.VerifierConfig) (payment.Verifier, error) {
	switch cfg.Mode {
	case "", verifierModeFormat:
		return payment.FormatVerifier{}, nil
	case verifierModeHTTP:
		if cfg.URL == "" {
			return nil, errors.New("payment.verifier.url must be set for http mode")
		}
		return payment.NewHTTPVerifier(cfg.URL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown payment.verifier.mode %q", cfg.Mode)
	}
}

func initializeServices(cfg *config.Config, dbPool *pgxpool.Pool, publisher event.EventPublisher, logger *slog.Logger) (customer.CustomerService, payment.PaymentService, *postgres.PaymentRepository) {
	logger.Info("Initializing application components...")

	verifier, err := selectVerifier(cfg.Payment.Verifier)
	if err != nil {
		logger.Error("Failed to configure PIN verifier", slog.Any("error", err))
		os.Exit(1)
	}

	customerRepo := postgres.NewCustomerRepository(dbPool, logger)
	paymentRepo := postgres.NewPaymentRepository(dbPool, logger)

	customerService := customer.NewCustomerService(customerRepo, publisher, cfg.Payment.CountryCode, logger)
	paymentService := payment.NewPaymentService(paymentRepo, payment.NewFactory(cfg.Payment.CountryCode), verifier, publisher, logger)

	return customerService, paymentService, paymentRepo
}

// newRateLimiter prefers the Redis-backed limiter so limits hold across
// replicas. The returned func releases background resources.
func newRateLimiter(cfg config.RateLimitConfig, client *redis.Client, logger *slog.Logger) (func(http.Handler) http.Handler, func()) {
	if client != nil {
		if rl := mw.NewRedisRateLimiterMiddleware(cfg, client, logger); rl.IsEnabled() {
			logger.Info("Using Redis rate limiter", "rps", cfg.RPS, "burst", cfg.Burst)
			return rl.Middleware, func() {}
		}
	}
	rl := mw.NewRateLimiterMiddleware(cfg, logger)
	return rl.Middleware, rl.Stop
}

func healthChecks(dbPool *pgxpool.Pool, client *redis.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"database": dbPool.Ping,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.")
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	if triggerReason != "server exited" {
		logger.Info("Waiting for server goroutine to confirm exit...")
		select {
		case err := <-serverErrors:
			if err != nil {
				logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
			} else {
				logger.Info("Server goroutine confirmed exit.")
			}
		case <-time.After(5 * time.Second):
			logger.Warn("Timed out waiting for server goroutine confirmation.")
		}
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, expireJob *batch.ExpirePendingJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.ExpirePendingSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultExpireSchedule
		logger.Warn("Pending expiry schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.ExpirePendingTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultExpireTimeout
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "ExpirePendingTransactions")
		jobLogger.Info("Cron triggered: expiring stale pending transactions.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := expireJob.Run(ctx); runErr != nil {
			jobLogger.Error("Pending expiry job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Pending expiry job finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule pending expiry job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled pending expiry job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
