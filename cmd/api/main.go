package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-kit/servicedesk/internal/api/http"
	"github.com/helpdesk-kit/servicedesk/internal/api/http/handlers"
	"github.com/helpdesk-kit/servicedesk/internal/auth"
	"github.com/helpdesk-kit/servicedesk/internal/config"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/mailer"
	"github.com/helpdesk-kit/servicedesk/internal/observability"
	"github.com/helpdesk-kit/servicedesk/internal/persistence"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	"github.com/helpdesk-kit/servicedesk/internal/service"
	"github.com/helpdesk-kit/servicedesk/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewStatusHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	escalationRepo := repository.NewEscalationRequestRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	metrics := observability.NewMetrics()
	authorizer := service.NewAuthorizer()
	directory := service.NewDirectoryService(userRepo, redis.Client, logger)
	publisher := events.NewOutboxPublisher(outboxRepo)

	var mail mailer.Mailer
	if cfg.Notify.ResendAPIKey != "" {
		mail = mailer.NewResendMailer(cfg.Notify.ResendAPIKey, cfg.Notify.EmailFrom)
	} else {
		logger.Warn("NOTIFY_RESEND_API_KEY not provided; falling back to log mailer")
		mail = mailer.NewLogMailer(logger)
	}

	authService := service.NewAuthService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		Directory:      directory,
		Publisher:      publisher,
		Logger:         logger,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		HistoryRepo:    historyRepo,
		Authorizer:     authorizer,
		Directory:      directory,
		Publisher:      publisher,
		Logger:         logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		RequestRepo: escalationRepo,
		HistoryRepo: historyRepo,
		Authorizer:  authorizer,
		Directory:   directory,
		Publisher:   publisher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo:       ticketRepo,
		NotificationRepo: notificationRepo,
		Directory:        directory,
		Mailer:           mail,
		Metrics:          metrics,
		Logger:           logger,
		BaseURL:          cfg.App.BaseURL,
	})

	outboxWorker := worker.NewNotificationWorker(outboxRepo, notificationService.Dispatch, cfg.Worker, logger)
	go outboxWorker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, workflowService),
		Workflow:       handlers.NewWorkflowHandler(workflowService, escalationService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
