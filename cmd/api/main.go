package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-routing/internal/api/http"
	"github.com/spec-kit/ticket-routing/internal/api/http/handlers"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/persistence"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/service"
	"github.com/spec-kit/ticket-routing/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		users         repository.UserRepository
		tickets       repository.TicketStore
		notifications repository.NotificationStore
		catalog       repository.ServiceCatalog
		queue         repository.EngineerQueue
	)
	if pool := pg.PoolHandle(); pool != nil {
		users = repository.NewUserRepository(pool)
		tickets = repository.NewTicketStore(pool)
		notifications = repository.NewNotificationStore(pool)
		catalog = repository.NewServiceCatalog(pool)
		queue = repository.NewRedisEngineerQueue(redis.Client, cfg.Queue.RotationKey)
	} else {
		users = repository.NewMemoryUserRepository()
		tickets = repository.NewMemoryTicketStore()
		notifications = repository.NewMemoryNotificationStore()
		catalog = repository.NewMemoryServiceCatalog("Email", "Network", "Hardware", "Software")
		queue = repository.NewMemoryEngineerQueue()
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
			metrics.RecordAssignment(payload.EngineerID)
		}
		return nil
	})

	assigner := service.NewAssignmentService(service.AssignmentDependencies{
		TicketStore: tickets,
		Directory:   users,
		Queue:       queue,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketStore: tickets,
		Directory:   users,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationStore: notifications,
		Directory:         users,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketStore: tickets,
		Directory:   users,
		Catalog:     catalog,
		Assigner:    assigner,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(cfg.Auth, users, logger)
	provisionService := service.NewProvisionService(cfg.Auth, users, queue, logger)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), users)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, lifecycle),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Admin:          handlers.NewAdminHandler(provisionService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
