package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trivia-progression-service/handlers"
	"trivia-progression-service/middleware"
	"trivia-progression-service/services"
	"trivia-progression-service/store"
	"trivia-progression-service/utils"
	"trivia-progression-service/workers"

	"github.com/go-co-op/gocron/v2"
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

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
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

	// TranslateError so unique-constraint conflicts surface as
	// gorm.ErrDuplicatedKey — the unlock ledgers rely on it.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	progressStore := store.NewGormStore(db)
	if err := progressStore.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.SeedCatalogs(bootCtx, progressStore); err != nil {
		log.Fatal("failed to seed catalogs:", err)
	}
	cancelBoot()

	// The service's reference timezone — day rollovers and streaks follow it.
	tzName := os.Getenv("SERVICE_TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatal("invalid SERVICE_TIMEZONE:", err)
	}

	progressionService := services.NewProgressionService(progressStore, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	workers.NewCounterReconcileWorker(progressionService).Start(sched)
	workers.NewLedgerArchiveWorker(progressStore).Start(sched)
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	// ✅ Setup routes — enforced Gateway auth, user context on /user and /admin
	handlers.SetupProgressionRoutes(app, progressionService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Printf("✅ Service timezone: %s", loc)
	log.Println("✅ Counter reconcile + ledger archive workers running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
