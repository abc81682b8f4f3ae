package handlers

import (
	"clan-attendance-system/middleware"
	"clan-attendance-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPlayerRoutes(app *fiber.App, playerService *services.PlayerService) {
	// 🔓 Public roster views
	app.Get("/players", playerService.ListPlayers)
	app.Get("/players/autocomplete", playerService.AutocompleteNicknames)
	app.Get("/players/:nickname", playerService.GetPlayer)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/players", playerService.RegisterPlayer)
	secured.Put("/players/:nickname", playerService.UpdateProfile)
	secured.Post("/players/:nickname/avatar", playerService.UploadAvatar)

	// 🔒 Admin-only
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Delete("/players/:nickname", playerService.DeletePlayer)
}
