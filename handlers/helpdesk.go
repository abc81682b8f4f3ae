package handlers

import (
	"clan-attendance-system/middleware"
	"clan-attendance-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupHelpdeskRoutes(app *fiber.App, helpdeskService *services.HelpdeskService) {
	// 🔐 Everything in the helpdesk requires user context
	secured := app.Group("/helpdesk", middleware.UserContextMiddleware())

	secured.Post("/users", helpdeskService.CreateUser)
	secured.Get("/users", helpdeskService.ListUsers)

	secured.Post("/requests", helpdeskService.CreateRequest)
	secured.Get("/requests", helpdeskService.ListRequests)
	secured.Post("/requests/:id/validate", helpdeskService.ValidateRequest)

	secured.Get("/tickets", helpdeskService.ListTickets)
	secured.Patch("/tickets/:id/assign", helpdeskService.AssignTicket)
	secured.Post("/tickets/:id/resolution", helpdeskService.ResolveTicket)
	secured.Post("/tickets/:id/sla", helpdeskService.AssignSLA)

	secured.Get("/audit", helpdeskService.ListAuditTrail)

	// 🔒 Admin-only: SLA policy management
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/sla-policies", helpdeskService.CreateSLAPolicy)
}
