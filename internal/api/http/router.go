package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-orchestrator/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Pipeline *handlers.PipelineHandler
	Batch    *handlers.BatchHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Pipeline.CreateTicket)
	tickets.Get("/:id", cfg.Pipeline.GetTicket)
	tickets.Post("/:id/classify", cfg.Pipeline.Classify)
	tickets.Post("/:id/issue", cfg.Pipeline.OpenIssue)
	tickets.Post("/:id/notify", cfg.Pipeline.Notify)
	tickets.Post("/:id/draft", cfg.Pipeline.Draft)
	tickets.Post("/:id/email", cfg.Pipeline.SendEmail)

	batch := app.Group("/batch")
	batch.Post("/runs", cfg.Batch.RunBatch)
	batch.Get("/runs/:id", cfg.Batch.GetRun)
}
