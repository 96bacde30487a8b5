package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"route-master-backend/internal/config"
	handler "route-master-backend/internal/handlers"
	"route-master-backend/internal/repository"
	service "route-master-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, logger zerolog.Logger) {
	runRepo := repository.NewRunRepository(db)

	reconService := service.NewService(runRepo, service.Options{
		OutputDir: cfg.OutputDir,
		Timeout:   cfg.ProcessTimeout,
		Logger:    logger,
	})

	reconHandler := handler.NewReconciliationHandler(reconService, cfg.UploadDir, cfg.OutputDir, cfg.MaxUploadMB)

	api := r.Group("/api")

	// Health check
	api.GET("/health", reconHandler.Health)

	// Reconciliation run routes
	recon := api.Group("/reconciliation")
	recon.POST("/upload", reconHandler.Upload)
	recon.GET("/runs", reconHandler.ListRuns)
	recon.GET("/:runId", reconHandler.GetRun)
	recon.GET("/:runId/kpis", reconHandler.GetKPIs)
	recon.GET("/:runId/files/:artifact", reconHandler.Download)
}
