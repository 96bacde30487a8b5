package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"route-master-backend/internal/config"
	"route-master-backend/internal/middleware"
	"route-master-backend/internal/models"
	"route-master-backend/internal/routes"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, relying on system env")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.AutoMigrate(&models.ReconciliationRun{}); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal().Err(err).Msg("creating work directories failed")
	}

	r := gin.New()
	r.Use(middleware.Logger(&logger), gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, logger)

	logger.Info().Str("port", cfg.Port).Msg("server listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
