package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalis-health/backend/internal/middleware"
	"github.com/vitalis-health/backend/internal/service"
)

// AdminHandler serves the admin dashboard: login, aggregate statistics,
// manual cleanup trigger and site settings.
type AdminHandler struct {
	auth      *service.AdminAuthService
	stats     service.IStatsService
	retention service.IRetentionService
	settings  *service.SettingsStore
}

func NewAdminHandler(auth *service.AdminAuthService, stats service.IStatsService, retention service.IRetentionService, settings *service.SettingsStore) *AdminHandler {
	return &AdminHandler{
		auth:      auth,
		stats:     stats,
		retention: retention,
		settings:  settings,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.POST("/login", h.Login)

	protected := admin.Group("")
	protected.Use(middleware.AdminAuth(h.auth))
	{
		protected.GET("/dashboard", h.Dashboard)
		protected.POST("/cleanup", h.Cleanup)
		protected.GET("/settings", h.GetSettings)
		protected.PUT("/settings", h.UpdateSettings)
	}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Dashboard returns aggregate counts only; individual records are never
// exposed here.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cleanup triggers one reaper sweep on demand.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	result, err := h.retention.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req service.SiteSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	c.JSON(http.StatusOK, h.settings.Update(req))
}
