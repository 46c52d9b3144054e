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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	adminhandler "github.com/jwalitptl/clinic-api/internal/handler/admin"
	appointmenthandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	doctorhandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	resethandler "github.com/jwalitptl/clinic-api/internal/handler/passwordreset"
	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	ratinghandler "github.com/jwalitptl/clinic-api/internal/handler/rating"
	userhandler "github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/payment"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	authsvc "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/internal/service/passwordreset"
	"github.com/jwalitptl/clinic-api/internal/service/rating"
	"github.com/jwalitptl/clinic-api/internal/service/registration"
	"github.com/jwalitptl/clinic-api/internal/service/slot"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	metricsNamespace = "clinic"
	shutdownTimeout  = 5 * time.Second
)

type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	store    *repository.Store
	registry *prometheus.Registry
	auth     *authsvc.Service
	notifier notification.Service
	router   *router.Router
}

func openStore(cfg *config.Config, l *logger.Logger) (*repository.Store, error) {
	if cfg.Database.Driver == "memory" {
		l.Warn("Using the in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	return postgres.NewStore(db), nil
}

func newApp(cfg *config.Config, l *logger.Logger) (*app, error) {
	store, err := openStore(cfg, l)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry, metricsNamespace, "")

	images, err := storage.NewCloudinaryStore(cfg.Images, l)
	if err != nil {
		store.Close()
		return nil, err
	}
	payments := payment.NewStripeProvider(cfg.Payment, l)
	mail := email.NewSMTPService(cfg.SMTP, l)

	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.TokenTTL())
	events := event.NewService(store.Outbox, l)
	notifier := notification.NewService(mail, l)

	authService := authsvc.NewService(store, hasher, tokens, cfg.Legacy, m, l)
	accounts := account.NewService(store, hasher, images, l)
	registrations := registration.NewService(store, hasher, images, notifier, events, m, l)
	doctors := doctor.NewService(store, hasher, images, events, l)
	dash := dashboard.NewService(store)
	appointments := appointment.NewService(store, slot.NewLedger(store.Doctors, m), payments, events, m, l, cfg.Frontend.URL)
	ratings := rating.NewService(store, events, m, l)
	resets := passwordreset.NewService(store, mail, hasher, cfg.Frontend.URL, m, l)

	r := router.NewRouter(middleware.NewAuthMiddleware(tokens), router.Handlers{
		Auth:          authhandler.NewHandler(authService),
		User:          userhandler.NewHandler(registrations, accounts),
		Appointment:   appointmenthandler.NewHandler(appointments),
		Doctor:        doctorhandler.NewHandler(doctors, dash),
		Admin:         adminhandler.NewHandler(accounts, registrations, dash),
		Rating:        ratinghandler.NewHandler(ratings),
		PasswordReset: resethandler.NewHandler(resets),
		Health:        health.NewHandler(store.Health),
		Metrics:       promhandler.New(registry, metricsNamespace),
	}, router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RateIdle:         time.Duration(cfg.RateLimit.IdleMinutes) * time.Minute,
		Timeout:          cfg.RequestTimeout(),
		CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins...),
	})
	r.Setup()

	return &app{
		cfg:      cfg,
		logger:   l,
		store:    store,
		registry: registry,
		auth:     authService,
		notifier: notifier,
		router:   r,
	}, nil
}

func (a *app) seed(ctx context.Context) error {
	seeded, err := authsvc.NewBootstrapper(a.auth).Seed(ctx)
	if err != nil {
		return err
	}
	for _, role := range seeded {
		a.logger.Info("Seeded privileged account", "role", string(role))
	}
	return nil
}

func (a *app) close() {
	a.notifier.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Error(err, "Failed to close store")
	}
}

func runServer(ctx context.Context, cfg *config.Config, l *logger.Logger, migrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if migrate && cfg.Database.Driver == "postgres" {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return err
		}
		applied, err := postgres.Migrate(ctx, db)
		db.Close()
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		l.Info("Migrations applied", "count", len(applied))
	}

	a, err := newApp(cfg, l)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Bootstrap.OnStartup {
		if err := a.seed(ctx); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// in-memory deployments have no separate worker process
	if cfg.Database.Driver == "memory" {
		go worker.NewResetCleanupWorker(a.store.ResetTokens, cfg.ResetCleanup.Interval, l).Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	l.Info("Server exited properly")
	return nil
}
