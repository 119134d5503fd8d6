package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/eservice/internal/api/http/handlers"
	"github.com/spec-kit/eservice/internal/auth"
	"github.com/spec-kit/eservice/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	v1 := app.Group("/api/v1")

	health := v1.Group("/health")
	health.Get("/ping", cfg.Health.Ping)
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)

	authn := cfg.AuthMiddleware.Handle

	tickets := v1.Group("/tickets", authn)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/history", cfg.Tickets.TicketHistory)

	// Surfaces of the wider platform that are not served yet.
	ai := v1.Group("/ai", authn)
	ai.Post("/chat", handlers.NotImplemented("ai_chat"))
	ai.Post("/rag/retrieve", handlers.NotImplemented("rag_retrieve"))
	ai.Post("/feedback", handlers.NotImplemented("ai_feedback"))

	v1.Group("/routing", authn).Post("/suggest", handlers.NotImplemented("routing_suggest"))

	kb := v1.Group("/knowledge-base", authn)
	kb.Post("/articles", handlers.NotImplemented("knowledge_base"))
	kb.Get("/articles", handlers.NotImplemented("knowledge_base"))
	kb.Get("/articles/:id", handlers.NotImplemented("knowledge_base"))

	v1.Group("/analytics", authn).Get("/metrics", handlers.NotImplemented("analytics"))
}
