package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clan-attendance-system/handlers"
	"clan-attendance-system/middleware"
	"clan-attendance-system/models"
	"clan-attendance-system/services"
	"clan-attendance-system/storage"
	"clan-attendance-system/utils"
	"clan-attendance-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // 25MB, avatars are the largest upload
	})

	// 🔐 GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.AttendanceEntry{},
		&models.EventDate{},
		&models.Player{},
		&models.HelpdeskUser{},
		&models.ServiceRequest{},
		&models.Ticket{},
		&models.Resolution{},
		&models.SLAPolicy{},
		&models.SLAAssignment{},
		&models.AuditRecord{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	attendanceStore := storage.NewGormAttendanceStore(db)
	eventDateSource := storage.NewGormEventDateSource(db)

	ledger := services.NewAttendanceLedger(attendanceStore, logger)
	engine := services.NewRankingEngine(attendanceStore, eventDateSource, logger)

	attendanceService := services.NewAttendanceService(db, ledger, engine, logger)
	eventDateService := services.NewEventDateService(db, logger)
	playerService := services.NewPlayerService(db, logger)
	helpdeskService := services.NewHelpdeskService(db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers: SLA breach monitor + notification dispatch
	slaMonitor := workers.NewSLAMonitor(db)
	go workers.PollSLABreaches(ctx, slaMonitor, 5*time.Minute)

	notifyClient := workers.NewNotifyClient(db)
	go workers.PollNotifications(ctx, notifyClient, 30*time.Second)

	attendanceService.StartMaintenanceScheduler(eventDateService)

	handlers.SetupAttendanceRoutes(app, attendanceService, eventDateService)
	handlers.SetupPlayerRoutes(app, playerService)
	handlers.SetupHelpdeskRoutes(app, helpdeskService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5100"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5100")
	log.Println("✅ SLA breach monitor running (every 5m)")
	log.Println("✅ Notification dispatch running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
