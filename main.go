package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"account-settlement-system/handlers"
	"account-settlement-system/models"
	"account-settlement-system/services"
	"account-settlement-system/utils"
	"account-settlement-system/workers"

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
		BodyLimit: 20 * 1024 * 1024, // payment proofs only, keep it small
	})

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control",
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

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ScriptEnv{},
		&models.EarningRecord{},
		&models.UserReferral{},
		&models.ReferralSnapshot{},
		&models.SettlementPeriod{},
		&models.UserIncome{},
		&models.Commission{},
		&models.UserPayable{},
		&models.Payment{},
		&models.WalletAccount{},
		&models.WalletLedger{},
		&models.WithdrawRequest{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authService := services.NewAuthService(db)
	userService := services.NewUserService(db)
	settlementService := services.NewSettlementService(db)
	unlockService := services.NewUnlockService(db)
	paymentService := services.NewPaymentService(db, settlementService)
	walletService := services.NewWalletService(db, settlementService)
	withdrawalService := services.NewWithdrawalService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	earningsClient := workers.NewEarningsSyncClient(db)
	go workers.PollEarnings(ctx, earningsClient, 5*time.Minute)

	settlementService.StartSettlementScheduler(unlockService)

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupUserRoutes(app, authService, userService)
	handlers.SetupSettlementRoutes(app, authService, settlementService, paymentService, unlockService)
	handlers.SetupWalletRoutes(app, authService, walletService, withdrawalService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Earnings polling running (every 5m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
