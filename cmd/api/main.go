package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/liga-go-api/internal/config"
	"github.com/noah-isme/liga-go-api/internal/database"
	"github.com/noah-isme/liga-go-api/internal/handler"
	"github.com/noah-isme/liga-go-api/internal/middleware"
	"github.com/noah-isme/liga-go-api/internal/models"
	"github.com/noah-isme/liga-go-api/internal/observability"
	"github.com/noah-isme/liga-go-api/internal/repository"
	"github.com/noah-isme/liga-go-api/internal/router"
	"github.com/noah-isme/liga-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.License{},
		&models.SkillAssessment{},
		&models.SkillReward{},
		&models.XPTransaction{},
		&models.CreditTransaction{},
		&models.Tournament{},
		&models.TournamentParticipation{},
		&models.SpecializationProgress{},
		&models.ProgressionHistory{},
		&models.AuditRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	locks := observability.NewLockTracker(logger)

	userRepo := repository.NewUserRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	tournamentRepo := repository.NewTournamentRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo, logger)
	ratingService := service.NewRatingService(participationRepo, licenseRepo, cfg.RatingAlpha, logger)
	assessmentService := service.NewAssessmentService(db, licenseRepo, assessmentRepo, userRepo, auditService, validate, locks, redisClient, cfg.AveragesCacheTTL, logger)

	rates := service.DefaultConversionRates()
	rates.Default = cfg.DefaultConversionRate
	rewardService := service.NewRewardService(db, userRepo, tournamentRepo, participationRepo, rewardRepo, ledgerRepo, licenseRepo, ratingService, rates, validate, locks, logger)
	syncService := service.NewSyncService(db, progressRepo, licenseRepo, locks, logger)

	assessmentHandler := handler.NewAssessmentHandler(assessmentService, logger)
	rewardHandler := handler.NewRewardHandler(rewardService, logger)
	syncHandler := handler.NewSyncHandler(syncService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssessmentHandler: assessmentHandler,
		RewardHandler:     rewardHandler,
		SyncHandler:       syncHandler,
		AuditHandler:      auditHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
