package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	resetworker "github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/rabbitmq"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	var (
		configDir  string
		healthAddr string
	)

	rootCmd := &cobra.Command{
		Use:          "clinic-worker",
		Short:        "Relays outbox events and cleans up expired reset tokens",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if configDir != "" {
				paths = append(paths, configDir)
			}
			cfg, err := config.LoadConfig(paths...)
			if err != nil {
				return err
			}
			return run(cfg, healthAddr)
		},
	}
	rootCmd.Flags().StringVar(&configDir, "config", "", "directory containing config.yaml")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address for health and metrics endpoints")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newBroker(cfg config.BrokerConfig, l *logger.Logger) (messaging.Broker, error) {
	switch cfg.Driver {
	case "rabbitmq":
		return rabbitmq.NewRabbitMQBroker(cfg.AMQPURL, l)
	default:
		return redis.NewRedisBroker(redis.Config{
			URL:          cfg.RedisURL,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		}, l)
	}
}

func setupHealthCheck(addr string, db *sqlx.DB, registry *prometheus.Registry, l *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "Health check server failed")
		}
	}()
	return srv
}

func run(cfg *config.Config, healthAddr string) error {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = *l.Zerolog()

	// the in-memory store lives inside the API process, there is nothing to relay
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("worker requires the postgres driver, got %q", cfg.Database.Driver)
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	store := postgres.NewStore(db)

	broker, err := newBroker(cfg.Broker, l)
	if err != nil {
		return fmt.Errorf("failed to create %s broker: %w", cfg.Broker.Driver, err)
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	processor := worker.NewOutboxProcessor(
		store.Outbox,
		broker,
		worker.OutboxProcessorConfig{
			Channel:       cfg.Broker.Channel,
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			Retention:     cfg.Outbox.Retention,
		},
		l,
		metrics.NewMetrics(registry, "clinic", "worker"),
	)
	cleanup := resetworker.NewResetCleanupWorker(store.ResetTokens, cfg.ResetCleanup.Interval, l)

	health := setupHealthCheck(healthAddr, db, registry, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	<-ctx.Done()
	l.Info("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return health.Shutdown(shutdownCtx)
}
