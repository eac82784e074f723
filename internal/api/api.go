package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/config"
	"github.com/vitalis-health/backend/internal/middleware"
	"github.com/vitalis-health/backend/internal/service"
	"github.com/vitalis-health/backend/internal/storage"
)

// API wires the services behind the HTTP surface. The retention service is
// exposed so the server can run the background reaper against the same
// instance the handlers use.
type API struct {
	Retention *service.RetentionService
}

// SetupAPI builds all services and registers every route under /api/v1.
func SetupAPI(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, files storage.FileStore, cfg *config.Config) *API {
	policy := service.RetentionPolicy{
		ReportTTL:     cfg.ReportTTL,
		DeletionGrace: cfg.ReaperGrace,
	}

	analyzer := service.NewAnalyzer(service.BuildProviderChain(context.Background(), cfg.AIProviders)...)
	retention := service.NewRetentionService(db, files, policy)
	assessments := service.NewAssessmentService(db, policy, analyzer)
	reports := service.NewReportService(db, files, service.NewPDFRenderer(), policy, retention)
	stats := service.NewStatsService(db, redisClient)
	auth := service.NewAdminAuthService(cfg.JWTSecret, cfg.AdminPasswordHash)
	settings := service.NewSettingsStore(service.SiteSettings{})
	limiter := middleware.NewAnalysisRateLimiter(redisClient)

	v1 := router.Group("/api/v1")
	{
		assessmentHandler := NewAssessmentHandler(assessments, retention, limiter)
		reportHandler := NewReportHandler(reports)
		adminHandler := NewAdminHandler(auth, stats, retention, settings)

		assessmentHandler.RegisterRoutes(v1)
		reportHandler.RegisterRoutes(v1)
		adminHandler.RegisterRoutes(v1)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &API{Retention: retention}
}

// respondError translates the service error taxonomy into the HTTP codes
// and messages the client distinguishes between. Storage details never
// reach the response body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation not allowed in current state"})
	case errors.Is(err, service.ErrAlreadyAnalyzed):
		c.JSON(http.StatusConflict, gin.H{"error": "assessment already analyzed"})
	case errors.Is(err, service.ErrAlreadyGenerated):
		c.JSON(http.StatusConflict, gin.H{"error": "report already generated"})
	case errors.Is(err, service.ErrAlreadyDownloaded):
		c.JSON(http.StatusForbidden, gin.H{"error": "report already downloaded"})
	case errors.Is(err, service.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "report expired and deleted"})
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
