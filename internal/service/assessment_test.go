package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-health/backend/internal/models"
)

func TestStartAssessmentCreatesProfileAndDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, rec, err := env.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, profile.ID)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.True(t, profile.EverHadData)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, profile.ID, rec.UserID)
	assert.Equal(t, models.StateDraft, rec.ReportState)
	assert.Nil(t, rec.ReportExpiresAt)
}

func TestStartAssessmentReusesProfileByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, rec1, err := env.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	// Same email in a different case resolves to the same profile and
	// updates its mutable fields.
	req := validStartRequest()
	req.Email = "  Jane@Example.COM "
	req.Age = 43
	second, rec2, err := env.assessment.StartAssessment(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 43, second.Age)
	assert.NotEqual(t, rec1.ID, rec2.ID)

	var count int64
	require.NoError(t, env.db.Model(&models.UserProfile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, env.db.Model(&models.AssessmentRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestStartAssessmentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]func(*StartAssessmentRequest){
		"missing name":   func(r *StartAssessmentRequest) { r.Name = "" },
		"missing email":  func(r *StartAssessmentRequest) { r.Email = "   " },
		"age too low":    func(r *StartAssessmentRequest) { r.Age = 0 },
		"age too high":   func(r *StartAssessmentRequest) { r.Age = 151 },
		"unknown gender": func(r *StartAssessmentRequest) { r.Gender = "robot" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validStartRequest()
			mutate(req)
			_, _, err := env.assessment.StartAssessment(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateSection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, rec, err := env.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	updated, err := env.assessment.UpdateSection(ctx, rec.ID, models.SectionBloodWork,
		json.RawMessage(`{"glucose": 140, "cholesterol": "high"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"glucose": 140, "cholesterol": "high"}`, string(updated.BloodWork))
	assert.Empty(t, updated.Lifestyle)

	// Sections can be rewritten while the record is still a draft.
	updated, err = env.assessment.UpdateSection(ctx, rec.ID, models.SectionBloodWork,
		json.RawMessage(`{"glucose": 90}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"glucose": 90}`, string(updated.BloodWork))
}

func TestUpdateSectionRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, rec, err := env.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	_, err = env.assessment.UpdateSection(ctx, rec.ID, "horoscope", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.assessment.UpdateSection(ctx, rec.ID, models.SectionDiet, json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.assessment.UpdateSection(ctx, uuid.New(), models.SectionDiet, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSectionRejectedOnceReportExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)

	_, err := env.assessment.UpdateSection(ctx, rec.ID, models.SectionLifestyle, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAnalyzeRunsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.startRecord(t, ctx)

	result, err := env.assessment.Analyze(ctx, rec.ID)
	require.NoError(t, err)
	assert.Contains(t, result.RiskFactors, "smoking")
	assert.Less(t, result.OverallScore, 100)
	assert.Equal(t, "builtin", result.Provider)

	stored, err := env.assessment.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAnalyzed, stored.ReportState)
	assert.True(t, stored.Analyzed())

	decoded, err := DecodeAnalysis(stored)
	require.NoError(t, err)
	assert.Equal(t, result.OverallScore, decoded.OverallScore)

	_, err = env.assessment.Analyze(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
}

func TestAnalyzeUnknownRecord(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assessment.Analyze(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzeEmptyRecordGetsNeutralScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, rec, err := env.assessment.StartAssessment(ctx, validStartRequest())
	require.NoError(t, err)

	result, err := env.assessment.Analyze(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, result.OverallScore)
	assert.Empty(t, result.RiskFactors)
}
