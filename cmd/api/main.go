package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/elcady/walimah-backend/internal/config"
	"github.com/elcady/walimah-backend/internal/handler"
	"github.com/elcady/walimah-backend/internal/random"
	"github.com/elcady/walimah-backend/internal/repository"
	"github.com/elcady/walimah-backend/internal/service"
	"github.com/elcady/walimah-backend/internal/validator"
	"github.com/elcady/walimah-backend/pkg/database"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Walimah Promo Engine",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Shared randomness source for allocation and draw execution
	rng := random.New()

	// Initialize components (layered architecture)
	couponRepo := repository.NewCouponRepository(pool)
	assignRepo := repository.NewAssignmentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	drawRepo := repository.NewDrawRepository(pool)
	winnerRepo := repository.NewWinnerRepository(pool)

	couponService := service.NewCouponService(pool, couponRepo, assignRepo, userRepo,
		cfg.Allocator.CompanyWeights(), rng, cfg.Allocator.MaxAttempts)
	drawService := service.NewDrawService(pool, drawRepo, winnerRepo, userRepo, rng)
	userService := service.NewUserService(userRepo)

	couponHandler := handler.NewCouponHandler(couponService, validate)
	drawHandler := handler.NewDrawHandler(drawService, validate)
	userHandler := handler.NewUserHandler(userService, validate)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// Coupon routes
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Post("/api/coupons/assign", couponHandler.AssignCoupon)
	app.Delete("/api/coupons", couponHandler.DeleteAllCoupons)

	// Draw routes
	app.Post("/api/draws", drawHandler.CreateDraw)
	app.Post("/api/draws/execute", drawHandler.ExecuteDraw)
	app.Get("/api/draws", drawHandler.ListDraws)
	app.Delete("/api/draws/:id", drawHandler.DeleteDraw)

	// User routes
	app.Post("/api/users", userHandler.Register)
	app.Get("/api/users/:id/coupons", couponHandler.GetUserCoupons)
	app.Get("/api/users/:id/referrals", userHandler.GetReferrals)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
