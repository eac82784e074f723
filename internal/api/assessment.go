package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitalis-health/backend/internal/middleware"
	"github.com/vitalis-health/backend/internal/service"
)

// AssessmentHandler serves the public assessment intake routes.
type AssessmentHandler struct {
	assessments service.IAssessmentService
	retention   service.IRetentionService
	limiter     *middleware.RateLimiter
}

func NewAssessmentHandler(assessments service.IAssessmentService, retention service.IRetentionService, limiter *middleware.RateLimiter) *AssessmentHandler {
	return &AssessmentHandler{
		assessments: assessments,
		retention:   retention,
		limiter:     limiter,
	}
}

func (h *AssessmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	assessments := router.Group("/assessments")
	{
		assessments.POST("", h.StartAssessment)
		assessments.PUT("/:id/:section", h.UpdateSection)
		assessments.POST("/:id/analyze", h.limiter.Middleware(), h.Analyze)
		assessments.DELETE("/user/:userId", h.DeleteUserData)
	}
}

func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	var req service.StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, record, err := h.assessments.StartAssessment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"userId":       profile.ID,
		"assessmentId": record.ID,
	})
}

func (h *AssessmentHandler) UpdateSection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}
	section := c.Param("section")

	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section payload"})
		return
	}

	record, err := h.assessments.UpdateSection(c.Request.Context(), id, section, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessmentId": record.ID,
		"section":      section,
		"data":         payload,
	})
}

func (h *AssessmentHandler) Analyze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	result, err := h.assessments.Analyze(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteUserData is the manual GDPR erasure endpoint. Deleting a user with
// no records succeeds with a zero count.
func (h *AssessmentHandler) DeleteUserData(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	deleted, err := h.retention.DeleteUserData(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
}
