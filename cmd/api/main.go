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

	"atendimento_backend/internal/adapters"
	"atendimento_backend/internal/agents/presence"
	"atendimento_backend/internal/attendance"
	"atendimento_backend/internal/attendance/sla"
	"atendimento_backend/internal/calls"
	"atendimento_backend/internal/config"
	"atendimento_backend/internal/events"
	apphttp "atendimento_backend/internal/http"
	"atendimento_backend/internal/http/router"
	"atendimento_backend/internal/notification"
	"atendimento_backend/internal/sectors"
	"atendimento_backend/platform/db"
	"atendimento_backend/platform/logger"
	"atendimento_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	presenceReader, err := presence.NewReaderFromURL(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis for presence", "error", err)
		panic("failed to connect to redis for presence: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module relays domain events to SSE and the webhook outbox
	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)

	attendanceModule := attendance.NewModule(pool, presenceReader, eventBus, val, cfg, log)
	if err := attendanceModule.Service().RebuildQueueIndex(ctx); err != nil {
		log.Error("failed to rebuild queue index", "error", err)
		panic("failed to rebuild queue index: " + err.Error())
	}

	contactChecker := adapters.NewAttendanceContactChecker(attendanceModule.Service())
	callsModule := calls.NewModule(pool, contactChecker, eventBus, val, log)
	sectorsModule := sectors.NewModule(pool)

	// SLA tick runner shares the monitor with the routing engine so queue
	// snapshots carry live alert flags.
	slaRunner := sla.NewRunner(attendanceModule.Monitor(), attendanceModule.Repository(),
		eventBus, cfg.SLATickInterval, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			sectorsModule,
			attendanceModule,
			callsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := slaRunner.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}
