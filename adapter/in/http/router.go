package http

import (
	"github.com/gofiber/fiber/v2"

	"inboxpilot/infra/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Scan     *ScanHandler
	Progress *ProgressHandler
	Email    *EmailHandler
	Health   *HealthHandler
}

// RegisterRoutes mounts the API surface. Scan and progress are called by the
// onboarding flow before the user holds a session token, so they sit outside
// the JWT group.
func RegisterRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")
	api.Post("/scan", h.Scan.Scan)
	api.Get("/progress/:userId", h.Progress.Get)

	emails := api.Group("/emails", middleware.JWTAuth(jwtSecret))
	emails.Get("/", h.Email.List)
	emails.Get("/processed", h.Email.Processed)
	emails.Post("/sync", h.Email.Sync)
}
