package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/liga-go-api/internal/config"
	"github.com/noah-isme/liga-go-api/internal/handler"
	"github.com/noah-isme/liga-go-api/internal/middleware"
	"github.com/noah-isme/liga-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssessmentHandler *handler.AssessmentHandler
	RewardHandler     *handler.RewardHandler
	SyncHandler       *handler.SyncHandler
	AuditHandler      *handler.AuditHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Skill assessments
	if deps.AssessmentHandler != nil {
		assessments := app.Group("/api/v1/assessments", jwtMiddleware)
		deps.AssessmentHandler.Register(assessments)
	}

	// Tournament participations & skill rewards
	if deps.RewardHandler != nil {
		rewards := app.Group("/api/v1/rewards", jwtMiddleware)
		deps.RewardHandler.Register(rewards)
	}

	// Progression reconciliation; batch endpoints are admin-only and rate limited
	if deps.SyncHandler != nil {
		sync := app.Group("/api/v1/sync",
			jwtMiddleware,
			middleware.RequireRole("admin", "instructor"),
			middleware.RateLimit("sync", 30, time.Minute),
		)
		deps.SyncHandler.Register(sync)
	}

	// Audit trail
	if deps.AuditHandler != nil {
		audit := app.Group("/api/v1/audit",
			jwtMiddleware,
			middleware.RequireRole("admin", "instructor"),
		)
		deps.AuditHandler.Register(audit)
	}
}
