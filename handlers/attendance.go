package handlers

import (
	"clan-attendance-system/middleware"
	"clan-attendance-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAttendanceRoutes(app *fiber.App, attendanceService *services.AttendanceService, eventDateService *services.EventDateService) {
	// 🔓 Public reads
	app.Get("/standings", attendanceService.GetStandings)
	app.Get("/attendance/players/:nickname", attendanceService.LookupPlayer)
	app.Get("/event-dates", eventDateService.ListEventDates)
	app.Get("/event-dates/:id", eventDateService.GetEventDate)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/attendance", attendanceService.SubmitAttendance)

	// 🔒 Admin-only: event date bookkeeping
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/event-dates", eventDateService.CreateEventDate)
	admin.Put("/event-dates/:id", eventDateService.UpdateEventDate)
	admin.Delete("/event-dates/:id", eventDateService.DeleteEventDate)
}
