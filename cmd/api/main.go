package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hospital-ops/internal/api/http"
	"github.com/spec-kit/hospital-ops/internal/api/http/handlers"
	"github.com/spec-kit/hospital-ops/internal/auth"
	"github.com/spec-kit/hospital-ops/internal/changefeed"
	"github.com/spec-kit/hospital-ops/internal/config"
	"github.com/spec-kit/hospital-ops/internal/events"
	"github.com/spec-kit/hospital-ops/internal/notification"
	"github.com/spec-kit/hospital-ops/internal/observability"
	"github.com/spec-kit/hospital-ops/internal/persistence"
	"github.com/spec-kit/hospital-ops/internal/realtime"
	"github.com/spec-kit/hospital-ops/internal/repository"
	"github.com/spec-kit/hospital-ops/internal/service"
	"github.com/spec-kit/hospital-ops/internal/stats"
	"github.com/spec-kit/hospital-ops/internal/worker"
)

const listenerLockKey = "hospital-ops:change-listener"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	onInvalid := func(table, id string, err error) {
		logger.Warn("skipping row with invalid value", zap.String("table", table), zap.String("id", id), zap.Error(err))
	}
	profileRepo := repository.NewProfileRepository(pool, onInvalid)
	contactRepo := repository.NewContactRepository(pool)
	emergencyRepo := repository.NewEmergencyRepository(pool, onInvalid)
	treatmentRepo := repository.NewTreatmentRepository(pool, onInvalid)
	shiftRepo := repository.NewShiftRepository(pool, onInvalid)
	helpRepo := repository.NewHelpRequestRepository(pool, onInvalid)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	// Change feed: Redis Pub/Sub when reachable so every instance sees the changes, with
	// one elected instance running the Postgres listener. Otherwise in-process.
	var (
		feed      changefeed.Feed
		publisher changefeed.Publisher
		lock      changefeed.Lock
		snapshots stats.SnapshotStore
	)
	snapshotTTL := 2 * cfg.Realtime.StatsPollInterval
	if redis.Reachable() {
		redisFeed := changefeed.NewRedisFeed(redis.Client, cfg.Realtime.ChannelPrefix, cfg.Realtime.SubscriberBuffer, logger)
		defer redisFeed.Close()
		feed, publisher = redisFeed, redisFeed
		lock = changefeed.NewRedisLock(redis.Client, listenerLockKey, 15*time.Second, logger)
		snapshots = stats.NewRedisSnapshotStore(redis.Client, "", snapshotTTL)
	} else {
		memoryFeed := changefeed.NewMemoryFeed(cfg.Realtime.SubscriberBuffer, logger)
		defer memoryFeed.Close()
		feed, publisher = memoryFeed, memoryFeed
		snapshots = stats.NewMemorySnapshotStore(snapshotTTL)
	}
	listener := changefeed.NewPGListener(pool, cfg.Realtime.NotifyChannel, publisher, lock, logger.Named("change-listener"))

	dispatcher := events.NewInMemoryDispatcher()

	emailChannel := notification.NewResendChannel(cfg.Notification, logger)
	fanout := notification.NewDispatcher(emailChannel, profileRepo, contactRepo, notification.Options{
		MaxWorkers:    cfg.Notification.MaxWorkers,
		PublicBaseURL: cfg.App.PublicBaseURL,
		Logger:        logger.Named("fanout"),
		Recorder:      metrics,
	})
	notificationService := service.NewNotificationService(dispatcher, fanout, logger, 2*time.Minute)

	emergencyService := service.NewEmergencyService(emergencyRepo, dispatcher, logger)
	treatmentService := service.NewTreatmentService(treatmentRepo, profileRepo, dispatcher, logger)
	shiftService := service.NewShiftService(shiftRepo, dispatcher, logger)
	helpService := service.NewHelpRequestService(helpRepo, dispatcher, logger)
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Computer: stats.NewComputer(statsRepo, time.Local),
		Store:    snapshots,
		Sources: realtime.Sources{
			Emergencies:  emergencyRepo,
			Treatments:   treatmentRepo,
			Shifts:       shiftRepo,
			HelpRequests: helpRepo,
			Appointments: appointmentRepo,
		},
		Feed:           feed,
		DebounceWindow: cfg.Realtime.DebounceWindow,
		Recorder:       metrics,
		Logger:         logger.Named("dashboard"),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokens, profileRepo)

	background := worker.NewGroup(logger)
	background.Go(ctx, "notifications", worker.StartNotificationWorker(notificationService))
	background.Go(ctx, "change-listener", listener)
	poller := stats.NewPoller(cfg.Realtime.StatsPollInterval, dashboardService.Refresh, logger)
	background.Go(ctx, "stats-poller", worker.RunnerFunc(func(ctx context.Context) error {
		poller.Run(ctx)
		return nil
	}))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dashboardHandler := handlers.NewDashboardHandler(dashboardService, 15*time.Second, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Resolve:        handlers.NewResolveHandler(emergencyService, logger),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Emergencies:    handlers.NewEmergenciesHandler(emergencyService),
		Treatments:     handlers.NewTreatmentsHandler(treatmentService),
		Shifts:         handlers.NewShiftsHandler(shiftService),
		HelpRequests:   handlers.NewHelpRequestsHandler(helpService),
		Dashboard:      dashboardHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	shutdown(logger, dashboardHandler, app, cancel, background)
}

type httpServer interface {
	ShutdownWithTimeout(timeout time.Duration) error
}

// shutdown stops HTTP traffic before background work: a request finishing during the
// drain may still start an emergency fan-out, which the notification worker must wait for.
func shutdown(logger *zap.Logger, streams interface{ Close() }, app httpServer, cancel context.CancelFunc, background *worker.Group) {
	streams.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	cancel()
	background.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
