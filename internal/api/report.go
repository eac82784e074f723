package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitalis-health/backend/internal/service"
)

// ReportHandler serves report generation, status and the one-time download.
type ReportHandler struct {
	reports service.IReportService
}

func NewReportHandler(reports service.IReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	assessments := router.Group("/assessments")
	{
		assessments.POST("/:id/report", h.GenerateReport)
		assessments.GET("/:id/report", h.DownloadReport)
		assessments.GET("/:id/report-status", h.ReportStatus)
	}
}

func (h *ReportHandler) GenerateReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	record, err := h.reports.Generate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expiresAt":   record.ReportExpiresAt,
		"downloadUrl": fmt.Sprintf("/api/v1/assessments/%s/report", record.ID),
	})
}

// DownloadReport streams the report and commits the download only after the
// bytes went out. A failed stream leaves the record downloadable again; a
// lost commit race after a successful stream is logged as a harmless
// duplicate.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	stream, err := h.reports.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() { _ = stream.Close() }()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Filename))
	c.Header("Content-Type", "application/pdf")
	if stream.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(stream.Size, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Bytes were not confirmed sent: no commit, record stays retryable.
		log.Printf("[Report] stream to client failed for record %s: %v", id, err)
		c.Abort()
		return
	}

	if err := h.reports.CommitDownload(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrAlreadyDownloaded) {
			log.Printf("[Report] record %s: concurrent download committed first, duplicate stream", id)
		} else {
			log.Printf("[Report] failed to commit download for record %s: %v", id, err)
		}
	}
}

func (h *ReportHandler) ReportStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	status, err := h.reports.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
