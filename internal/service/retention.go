package service

import (
	"time"

	"github.com/vitalis-health/backend/internal/models"
)

// DefaultReportTTL is how long a generated report stays downloadable.
const DefaultReportTTL = 24 * time.Hour

// DefaultDeletionGrace is how far in the past a scheduled deletion must be
// before the reaper physically removes the record.
const DefaultDeletionGrace = 24 * time.Hour

// RetentionPolicy owns the assessment lifecycle rules. All methods are pure:
// they inspect a record value and either reject the transition or return the
// column updates to apply. Persistence stays in the services so the state
// machine itself has no database mechanics.
type RetentionPolicy struct {
	ReportTTL     time.Duration
	DeletionGrace time.Duration
}

// NewRetentionPolicy returns the policy with production defaults.
func NewRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		ReportTTL:     DefaultReportTTL,
		DeletionGrace: DefaultDeletionGrace,
	}
}

// CheckSectionUpdate guards Draft -> Draft section writes. Sections may be
// rewritten any number of times until a report exists.
func (p RetentionPolicy) CheckSectionUpdate(rec *models.AssessmentRecord) error {
	if rec.ReportGenerated() {
		return ErrInvalidState
	}
	return nil
}

// CheckAnalyze guards Draft -> Analyzed. A second analyze call is rejected
// outright; the result is written once and never overwritten.
func (p RetentionPolicy) CheckAnalyze(rec *models.AssessmentRecord) error {
	if rec.Analyzed() {
		return ErrAlreadyAnalyzed
	}
	return nil
}

// CheckGenerateReport guards Analyzed -> ReportReady.
func (p RetentionPolicy) CheckGenerateReport(rec *models.AssessmentRecord) error {
	if rec.ReportGenerated() {
		return ErrAlreadyGenerated
	}
	if !rec.Analyzed() {
		return ErrInvalidState
	}
	return nil
}

// ReportReadyUpdate builds the column updates for a successful report
// generation: the artifact reference plus the expiry countdown.
func (p RetentionPolicy) ReportReadyUpdate(fileRef string, now time.Time) map[string]interface{} {
	expires := now.Add(p.ReportTTL)
	return map[string]interface{}{
		"report_state":        models.StateReportReady,
		"report_file_ref":     fileRef,
		"report_generated_at": now,
		"report_expires_at":   expires,
	}
}

// CheckDownload guards ReportReady -> Downloaded. Expiry takes precedence
// over everything except a prior download.
func (p RetentionPolicy) CheckDownload(rec *models.AssessmentRecord, now time.Time) error {
	if rec.ReportDownloadedAt != nil || rec.ReportState == models.StateDownloaded {
		return ErrAlreadyDownloaded
	}
	if !rec.ReportGenerated() {
		return ErrNotFound
	}
	if rec.ReportExpired(now) {
		return ErrExpired
	}
	return nil
}

// DownloadCommitUpdate builds the post-stream column updates. It must be
// applied with a "report_downloaded_at IS NULL" condition so only one of
// any concurrent downloads wins.
func (p RetentionPolicy) DownloadCommitUpdate(rec *models.AssessmentRecord, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"report_state":          models.StateDownloaded,
		"report_downloaded_at":  now,
		"scheduled_deletion_at": ScheduledDeletion(rec, now),
	}
}

// ScheduledDeletion keeps the deletion timestamp monotonic: once set it may
// only move earlier, never later.
func ScheduledDeletion(rec *models.AssessmentRecord, at time.Time) time.Time {
	if rec.ScheduledDeletionAt != nil && rec.ScheduledDeletionAt.Before(at) {
		return *rec.ScheduledDeletionAt
	}
	return at
}

// DueForReaping reports whether the reaper should remove the record now:
// either its scheduled deletion is at least the grace period in the past, or
// its report expired without ever being downloaded.
func (p RetentionPolicy) DueForReaping(rec *models.AssessmentRecord, now time.Time) bool {
	if rec.ScheduledDeletionAt != nil && !rec.ScheduledDeletionAt.After(now.Add(-p.DeletionGrace)) {
		return true
	}
	return rec.ReportExpired(now)
}
