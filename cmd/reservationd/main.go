package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/config"
	httptransport "github.com/example/club-reservations/internal/http"
	"github.com/example/club-reservations/internal/logging"
	"github.com/example/club-reservations/internal/notify"
	"github.com/example/club-reservations/internal/persistence/sqlstore"
	"github.com/example/club-reservations/internal/slotmutex"
	"github.com/example/club-reservations/internal/tracing"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("reservationd", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.StringP("config", "c", "", "YAML configuration file (defaults to $RESERVATION_CONFIG)")
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stdout)
	if err != nil {
		return err
	}

	if err := tracing.Configure(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		DaemonAddr:     cfg.Tracing.DaemonAddr,
		ServiceVersion: version,
	}); err != nil {
		return err
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return err
	}
	if *migrateOnly {
		logger.Info("migrations applied", "driver", store.Dialect().Name)
		return nil
	}

	mutexStore, closeMutex, err := newMutexStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMutex()
	mutex := slotmutex.New(mutexStore, slotmutex.Options{
		TTL:      cfg.MutexTTL,
		Location: cfg.Location,
		Logger:   logger,
	})

	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.SES.Region != "" {
		ses, err := notify.NewSESNotifier(ctx, cfg.SES.Region, cfg.SES.FromEmail, store, cfg.Location, logger)
		if err != nil {
			logger.Error("failed to configure SES", "error", err)
			return err
		}
		notifiers = append(notifiers, ses)
	}
	dispatcher := notify.NewDispatcher(notify.Multi(notifiers...), notify.DefaultTimeout, logger)
	defer dispatcher.Wait()

	now := time.Now
	gate := authority.NewGate(store, logger)

	reservationService := application.NewReservationService(application.ReservationServiceDeps{
		Reservations:  store,
		Resources:     store,
		Members:       store,
		Gate:          gate,
		Mutex:         mutex,
		Notifications: dispatcher,
		IDGenerator:   uuid.NewString,
		Now:           now,
		Location:      cfg.Location,
		Logger:        logger,
	})
	resourceService := application.NewResourceServiceWithLogger(store, store, gate, uuid.NewString, now, logger)

	var background sync.WaitGroup
	defer background.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Reminders.Enabled {
		sweeper := application.NewReminderSweeper(application.ReminderSweeperDeps{
			Reservations:  store,
			Reminders:     store,
			Resources:     store,
			Members:       store,
			Notifications: dispatcher,
			Interval:      cfg.Reminders.Interval,
			Lead:          cfg.Reminders.Lead,
			Now:           now,
			Logger:        logger,
		})
		background.Add(1)
		go func() {
			defer background.Done()
			if err := sweeper.Run(ctx); err != nil {
				logger.Error("reminder sweeper stopped", "error", err)
			}
		}()
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Resources:    httptransport.NewResourceHandler(resourceService, logger),
		Health:       store.Ping,
		Logger:       logger,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	background.Add(1)
	go func() {
		defer background.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr, "version", version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

// newMutexStore returns the Redis-backed store when an address is configured
// and a process-local one otherwise.
func newMutexStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (slotmutex.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("redis not configured; slot mutex is process-local")
		return slotmutex.NewMemoryStore(time.Now), func() {}, nil
	}

	client, err := slotmutex.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		return nil, nil, err
	}
	closeFn := func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("failed to close redis client", "error", cerr)
		}
	}
	return slotmutex.NewRedisStore(client, cfg.Redis.KeyPrefix), closeFn, nil
}
