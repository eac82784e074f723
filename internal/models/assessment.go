package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportState is the lifecycle state of an assessment's report.
type ReportState string

const (
	StateDraft       ReportState = "draft"
	StateAnalyzed    ReportState = "analyzed"
	StateReportReady ReportState = "report_ready"
	StateDownloaded  ReportState = "downloaded"
	// StateExpired is never stored; it is derived when a report_ready record
	// outlives its expiry timestamp. A deleted record has no state at all.
	StateExpired ReportState = "expired"
)

// Assessment section names, matching the public API paths.
const (
	SectionLifestyle    = "lifestyle"
	SectionBloodWork    = "bloodwork"
	SectionDiet         = "diet"
	SectionMentalHealth = "mental"
)

// AssessmentRecord is the ephemeral health record of a single assessment.
// It always belongs to exactly one UserProfile and is physically deleted
// after one successful report download or 24 hours after report generation,
// whichever comes first.
type AssessmentRecord struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`

	Lifestyle    datatypes.JSON `json:"lifestyle,omitempty"`
	BloodWork    datatypes.JSON `json:"blood_work,omitempty"`
	Diet         datatypes.JSON `json:"diet,omitempty"`
	MentalHealth datatypes.JSON `json:"mental_health,omitempty"`

	// AnalysisResult is written at most once; a second analyze call is
	// rejected rather than overwriting it.
	AnalysisResult datatypes.JSON `json:"analysis_result,omitempty"`

	ReportState       ReportState `gorm:"size:20;not null;default:'draft'" json:"report_state"`
	ReportFileRef     string      `gorm:"size:255" json:"-"`
	ReportGeneratedAt *time.Time  `json:"report_generated_at,omitempty"`
	ReportExpiresAt   *time.Time  `gorm:"index" json:"report_expires_at,omitempty"`

	// ReportDownloadedAt is set at most once, by a conditional update that is
	// the single source of truth for the one-download guarantee.
	ReportDownloadedAt *time.Time `json:"report_downloaded_at,omitempty"`

	// ScheduledDeletionAt, once set, is only ever moved earlier.
	ScheduledDeletionAt *time.Time `gorm:"index" json:"scheduled_deletion_at,omitempty"`
}

func (r *AssessmentRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ReportState == "" {
		r.ReportState = StateDraft
	}
	return nil
}

// Analyzed reports whether the analysis step has run.
func (r *AssessmentRecord) Analyzed() bool {
	return len(r.AnalysisResult) > 0
}

// ReportGenerated reports whether a report artifact exists (or existed).
func (r *AssessmentRecord) ReportGenerated() bool {
	return r.ReportState == StateReportReady || r.ReportState == StateDownloaded
}

// ReportExpired reports whether the record's report outlived its expiry
// without being downloaded.
func (r *AssessmentRecord) ReportExpired(now time.Time) bool {
	return r.ReportState == StateReportReady &&
		r.ReportExpiresAt != nil && now.After(*r.ReportExpiresAt)
}

// EffectiveState is the lifecycle state as observed at `now`, deriving
// Expired lazily instead of storing it.
func (r *AssessmentRecord) EffectiveState(now time.Time) ReportState {
	if r.ReportExpired(now) {
		return StateExpired
	}
	return r.ReportState
}
