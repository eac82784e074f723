package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
	"github.com/vitalis-health/backend/internal/storage"
	"github.com/vitalis-health/backend/internal/testhelpers"
)

// testEnv wires the services against an in-memory database and a temp-dir
// file store, the way SetupAPI wires them in production.
type testEnv struct {
	db         *gorm.DB
	files      *storage.LocalStore
	policy     RetentionPolicy
	retention  *RetentionService
	assessment *AssessmentService
	reports    *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	policy := NewRetentionPolicy()
	retention := NewRetentionService(db, files, policy)
	return &testEnv{
		db:         db,
		files:      files,
		policy:     policy,
		retention:  retention,
		assessment: NewAssessmentService(db, policy, NewAnalyzer()),
		reports:    NewReportService(db, files, NewPDFRenderer(), policy, retention),
	}
}

func validStartRequest() *StartAssessmentRequest {
	return &StartAssessmentRequest{
		Name:    "Jane Roe",
		Email:   "jane@example.com",
		Phone:   "+31 6 12345678",
		Age:     42,
		Gender:  models.GenderFemale,
		Country: "Netherlands",
	}
}

// startRecord creates a profile plus draft record and fills one section.
func (e *testEnv) startRecord(t *testing.T, ctx context.Context) *models.AssessmentRecord {
	t.Helper()

	_, rec, err := e.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	rec, err = e.assessment.UpdateSection(ctx, rec.ID, models.SectionLifestyle,
		json.RawMessage(`{"smoking": true, "exercise": "none"}`))
	require.NoError(t, err)
	return rec
}

// analyzedRecord is startRecord followed by the analysis step.
func (e *testEnv) analyzedRecord(t *testing.T, ctx context.Context) *models.AssessmentRecord {
	t.Helper()

	rec := e.startRecord(t, ctx)
	_, err := e.assessment.Analyze(ctx, rec.ID)
	require.NoError(t, err)

	rec, err = e.assessment.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	return rec
}

// readyRecord is analyzedRecord followed by report generation.
func (e *testEnv) readyRecord(t *testing.T, ctx context.Context) *models.AssessmentRecord {
	t.Helper()

	rec := e.analyzedRecord(t, ctx)
	rec, err := e.reports.Generate(ctx, rec.ID)
	require.NoError(t, err)
	return rec
}
