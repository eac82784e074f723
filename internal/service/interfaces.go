package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/vitalis-health/backend/internal/models"
)

// IAssessmentService defines the assessment intake and analysis operations.
type IAssessmentService interface {
	StartAssessment(ctx context.Context, req *StartAssessmentRequest) (*models.UserProfile, *models.AssessmentRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*models.AssessmentRecord, error)
	UpdateSection(ctx context.Context, id uuid.UUID, section string, payload json.RawMessage) (*models.AssessmentRecord, error)
	Analyze(ctx context.Context, id uuid.UUID) (*AnalysisResult, error)
}

// IReportService defines the report lifecycle operations.
type IReportService interface {
	Generate(ctx context.Context, id uuid.UUID) (*models.AssessmentRecord, error)
	Open(ctx context.Context, id uuid.UUID) (*ReportStream, error)
	CommitDownload(ctx context.Context, id uuid.UUID) error
	Status(ctx context.Context, id uuid.UUID) (*ReportStatus, error)
}

// IRetentionService defines the deletion operations exposed over HTTP.
type IRetentionService interface {
	DeleteUserData(ctx context.Context, userID uuid.UUID) (int, error)
	Sweep(ctx context.Context) (SweepResult, error)
}

// IStatsService defines the aggregate dashboard projections.
type IStatsService interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
}

var (
	_ IAssessmentService = (*AssessmentService)(nil)
	_ IReportService     = (*ReportService)(nil)
	_ IRetentionService  = (*RetentionService)(nil)
	_ IStatsService      = (*StatsService)(nil)
)
