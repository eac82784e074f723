package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
)

// StartAssessmentRequest carries the profile fields used to resolve or
// create the user, keyed by email.
type StartAssessmentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Country string `json:"country"`
}

// Validate checks the profile fields before anything touches the store.
func (r *StartAssessmentRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if models.NormalizeEmail(r.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if r.Age < 1 || r.Age > 150 {
		return fmt.Errorf("%w: age must be between 1 and 150", ErrValidation)
	}
	if !models.ValidGender(r.Gender) {
		return fmt.Errorf("%w: gender must be male, female or other", ErrValidation)
	}
	return nil
}

// AssessmentService owns profile resolution, section updates and the
// analysis step. Report generation and download live in ReportService.
type AssessmentService struct {
	db       *gorm.DB
	policy   RetentionPolicy
	analyzer *Analyzer
	now      func() time.Time
}

func NewAssessmentService(db *gorm.DB, policy RetentionPolicy, analyzer *Analyzer) *AssessmentService {
	return &AssessmentService{
		db:       db,
		policy:   policy,
		analyzer: analyzer,
		now:      time.Now,
	}
}

// StartAssessment resolves the profile by email (creating or updating it)
// and opens a fresh draft record.
func (s *AssessmentService) StartAssessment(ctx context.Context, req *StartAssessmentRequest) (*models.UserProfile, *models.AssessmentRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	email := models.NormalizeEmail(req.Email)
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	switch {
	case err == nil:
		// Existing email updates the mutable fields, never duplicates.
		profile.Name = req.Name
		profile.Phone = req.Phone
		profile.Age = req.Age
		profile.Gender = req.Gender
		profile.Country = req.Country
		profile.EverHadData = true
		if err := s.db.WithContext(ctx).Save(&profile).Error; err != nil {
			return nil, nil, ErrStorage
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = models.UserProfile{
			Name:        req.Name,
			Email:       email,
			Phone:       req.Phone,
			Age:         req.Age,
			Gender:      req.Gender,
			Country:     req.Country,
			EverHadData: true,
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, nil, ErrStorage
		}
	default:
		return nil, nil, ErrStorage
	}

	record := models.AssessmentRecord{UserID: profile.ID}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, nil, ErrStorage
	}
	return &profile, &record, nil
}

// GetRecord loads an assessment record by id.
func (s *AssessmentService) GetRecord(ctx context.Context, id uuid.UUID) (*models.AssessmentRecord, error) {
	var rec models.AssessmentRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrStorage
	}
	return &rec, nil
}

// sectionColumn maps public section names onto record columns.
func sectionColumn(section string) (string, error) {
	switch section {
	case models.SectionLifestyle:
		return "lifestyle", nil
	case models.SectionBloodWork:
		return "blood_work", nil
	case models.SectionDiet:
		return "diet", nil
	case models.SectionMentalHealth:
		return "mental_health", nil
	}
	return "", fmt.Errorf("%w: unknown section %q", ErrValidation, section)
}

// UpdateSection overwrites one section of a draft or analyzed record. The
// write is a single UPDATE so a partial section is never visible.
func (s *AssessmentService) UpdateSection(ctx context.Context, id uuid.UUID, section string, payload json.RawMessage) (*models.AssessmentRecord, error) {
	column, err := sectionColumn(section)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: section payload is not valid JSON", ErrValidation)
	}

	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckSectionUpdate(rec); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(rec).
		Update(column, datatypes.JSON(payload)).Error; err != nil {
		return nil, ErrStorage
	}
	return s.GetRecord(ctx, id)
}

// Analyze runs the scoring and recommendation step exactly once per record.
// The commit is conditional on analysis_result still being unset, so two
// racing analyze calls cannot both win.
func (s *AssessmentService) Analyze(ctx context.Context, id uuid.UUID) (*AnalysisResult, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckAnalyze(rec); err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", rec.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrStorage
	}

	result, err := s.analyzer.Analyze(ctx, &profile, rec)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.AssessmentRecord{}).
		Where("id = ? AND analysis_result IS NULL", id).
		Updates(map[string]interface{}{
			"analysis_result": datatypes.JSON(encoded),
			"report_state":    models.StateAnalyzed,
		})
	if res.Error != nil {
		return nil, ErrStorage
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyAnalyzed
	}

	log.Printf("[Assessment] record %s analyzed, score %d (provider %s)", id, result.OverallScore, result.Provider)
	return result, nil
}

// DecodeAnalysis unmarshals the stored analysis result of a record.
func DecodeAnalysis(rec *models.AssessmentRecord) (*AnalysisResult, error) {
	if !rec.Analyzed() {
		return nil, ErrInvalidState
	}
	var result AnalysisResult
	if err := json.Unmarshal(rec.AnalysisResult, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}
