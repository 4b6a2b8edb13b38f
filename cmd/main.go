package main

import (
	"context"
	"errors"
	"fmt"
	_ "loan-engine/docs"
	"loan-engine/internal/api"
	"loan-engine/internal/batch"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/cache"
	"loan-engine/internal/infrastructure/database/postgres"
	"loan-engine/internal/infrastructure/logging"
	"loan-engine/internal/pkg/money"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultArrearsSchedule = "0 2 * * *"
	defaultArrearsTimeout  = 1 * time.Hour
)

// @title Loan Engine API
// @version 1.0
// @description Loan accounting API: applications, lifecycle transitions, repayments, charges and arrears.
// @termsOfService http://loan-engine.example.com/terms/

// @contact.name API Support
// @contact.url http://loan-engine.example.com/support
// @contact.email support@loan-engine.example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	currency, clock := initializeLedger(cfg, logger)

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	rabbitMQConn := setupRabbitMQ(cfg, logger)
	redisClient := initializeRedisClient(cfg, logger)

	publisher := initializePublisher(cfg, rabbitMQConn, logger)
	summaryCache := initializeSummaryCache(cfg, redisClient, logger)

	loanRepo := postgres.NewLoanRepository(dbPool, logger)
	loanService := loan.NewLoanService(loanRepo, summaryCache, publisher, clock, logger)
	logger.Info("Loan service ready", "currency", currency.Code, "businessDate", loanService.BusinessDate().Format(loan.DateLayout))

	arrearsJob := batch.NewUpdateArrearsJob(loanRepo, loanService, publisher, cfg.Batch.ArrearsConcurrency, logger)
	cronScheduler := startBatchJobs(cfg, logger, arrearsJob)

	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()
	router := api.SetupRouter(routerCtx, loanService, currency, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitMQConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeLedger(cfg *config.Config, logger *slog.Logger) (money.Currency, loan.BusinessDateProvider) {
	currency, err := cfg.Ledger.CurrencyPolicy()
	if err != nil {
		logger.Error("Invalid ledger currency policy", "error", err)
		os.Exit(1)
	}
	clock, err := cfg.Ledger.BusinessDateProvider()
	if err != nil {
		logger.Error("Invalid business date configuration", "error", err)
		os.Exit(1)
	}
	return currency, clock
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

// initializePublisher returns a nil interface when events are disabled or the
// broker is unreachable; the service then commits without notifying.
func initializePublisher(cfg *config.Config, conn *amqp.Connection, logger *slog.Logger) loan.EventPublisher {
	if conn == nil {
		logger.Warn("Event publishing disabled")
		return nil
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to create event publisher, continuing without events", "error", err)
		return nil
	}
	return publisher
}

func initializeSummaryCache(cfg *config.Config, client *redis.Client, logger *slog.Logger) loan.SummaryCache {
	if client == nil {
		logger.Warn("Summary cache disabled")
		return nil
	}
	return cache.NewRedisSummaryCache(client, cfg.Redis.TTL, logger)
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

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
		return
	}
	if rabbitConn.IsClosed() {
		logger.Info("RabbitMQ connection already closed, skipping close.")
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
	} else {
		logger.Info("RabbitMQ connection closed.")
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled by configuration")
		return nil
	}
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rdb, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, summaries will not be cached", "error", err, "addr", cfg.Redis.Addr)
		return nil
	}
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		logger.Info("Redis client was not initialized, skipping close.")
		return
	}
	logger.Info("Closing Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Redis client connection closed.")
	}
}

func arrearsJobSettings(cfg config.BatchConfig, logger *slog.Logger) (string, time.Duration) {
	scheduleSpec := cfg.ArrearsSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultArrearsSchedule
		logger.Warn("Batch arrears schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.ArrearsTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultArrearsTimeout
	}
	return scheduleSpec, jobTimeout
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, arrearsJob *batch.UpdateArrearsJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec, jobTimeout := arrearsJobSettings(cfg.Batch, logger)

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "ArrearsUpdate")
		jobLogger.Info("Cron triggered: Running arrears update job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := arrearsJob.Run(ctx); runErr != nil {
			jobLogger.Error("Arrears update job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Arrears update job finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule arrears update job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled arrears update job", "schedule", scheduleSpec, "job_id", jobID, "timeout", jobTimeout)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}

func connectRabbitMQ(uri string, retryCount int, backoff time.Duration, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					if e != nil {
						logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
					}
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i) * backoff)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("RabbitMQ host is not configured")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return "", fmt.Errorf("RabbitMQ username and password must be provided together")
	}

	host := cfg.Host
	if cfg.Port != 0 {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	u := url.URL{Scheme: "amqp", Host: host, Path: "/"}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String(), nil
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled by configuration")
		return nil
	}
	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		logger.Error("Invalid RabbitMQ configuration", "error", err)
		return nil
	}
	conn, err := connectRabbitMQ(uri, 5, 2*time.Second, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		return nil
	}
	return conn
}
