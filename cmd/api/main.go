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

	httptransport "github.com/spec-kit/support-orchestrator/internal/api/http"
	"github.com/spec-kit/support-orchestrator/internal/api/http/handlers"
	"github.com/spec-kit/support-orchestrator/internal/clients/jira"
	"github.com/spec-kit/support-orchestrator/internal/clients/llm"
	"github.com/spec-kit/support-orchestrator/internal/clients/slack"
	"github.com/spec-kit/support-orchestrator/internal/config"
	"github.com/spec-kit/support-orchestrator/internal/dataset"
	"github.com/spec-kit/support-orchestrator/internal/events"
	"github.com/spec-kit/support-orchestrator/internal/mailer"
	"github.com/spec-kit/support-orchestrator/internal/observability"
	"github.com/spec-kit/support-orchestrator/internal/persistence"
	"github.com/spec-kit/support-orchestrator/internal/repository"
	"github.com/spec-kit/support-orchestrator/internal/retry"
	"github.com/spec-kit/support-orchestrator/internal/service"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)

	metrics := observability.NewMetrics()

	llmPolicy := retry.Policy{
		Attempts: cfg.LLM.RetryAttempts,
		Delay:    time.Duration(cfg.LLM.RetryDelaySeconds) * time.Second,
	}
	batchPolicy := retry.Policy{
		Attempts: cfg.Batch.RetryAttempts,
		Delay:    time.Duration(cfg.Batch.RetryDelaySeconds) * time.Second,
	}

	llmClient := llm.NewClient(cfg.LLM, llmPolicy, logger)
	jiraClient := jira.NewClient(cfg.Jira, logger)
	slackClient := slack.NewClient(cfg.Slack, logger)
	mail := mailer.NewMailer(cfg.Email, logger)

	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, logger)
	audit.RegisterHandlers()

	pipelineService := service.NewPipelineService(service.PipelineDependencies{
		TicketRepo:   ticketRepo,
		CustomerRepo: customerRepo,
		Classifier:   llmClient,
		IssueTracker: jiraClient,
		Notifier:     slackClient,
		Drafter:      llmClient,
		Mailer:       mail,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	runStore := persistence.NewBatchRunStore(redis, cfg.Batch.RunTTL())
	querySource := dataset.NewCSVSource(cfg.Batch.QueryCSVPath)
	batchService := service.NewBatchService(pipelineService, querySource, runStore, batchPolicy, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	pipelineHandler := handlers.NewPipelineHandler(pipelineService)
	batchHandler := handlers.NewBatchHandler(batchService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Pipeline: pipelineHandler,
		Batch:    batchHandler,
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
