package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
	"github.com/vitalis-health/backend/internal/storage"
)

// RetentionService performs the physical deletions the retention policy
// demands: expired-report purges, GDPR per-user wipes and reaper sweeps.
// File and record are always removed in one routine so neither can outlive
// the other indefinitely; "already gone" is success on both sides.
type RetentionService struct {
	db     *gorm.DB
	files  storage.FileStore
	policy RetentionPolicy
	now    func() time.Time
}

func NewRetentionService(db *gorm.DB, files storage.FileStore, policy RetentionPolicy) *RetentionService {
	return &RetentionService{
		db:     db,
		files:  files,
		policy: policy,
		now:    time.Now,
	}
}

// SweepResult summarizes one reaper pass.
type SweepResult struct {
	Deleted       int `json:"deletedCount"`
	UsersAffected int `json:"usersAffected"`
}

// PurgeRecord deletes the record's artifact and then the record itself.
// File-not-found is tolerated and logged; a failing file store aborts the
// purge so the record keeps pointing at an artifact that still exists.
func (s *RetentionService) PurgeRecord(ctx context.Context, rec *models.AssessmentRecord) error {
	if rec.ReportFileRef != "" {
		if err := s.files.Delete(ctx, rec.ReportFileRef); err != nil {
			log.Printf("[Retention] failed to delete report file for record %s: %v", rec.ID, err)
			return ErrStorage
		}
	}
	if err := s.db.WithContext(ctx).Delete(&models.AssessmentRecord{}, "id = ?", rec.ID).Error; err != nil {
		log.Printf("[Retention] failed to delete record %s: %v", rec.ID, err)
		return ErrStorage
	}
	return nil
}

// DeleteUserData removes every assessment record (and artifact) belonging to
// a user. It is the GDPR erasure path: unconditional, idempotent, and a zero
// count is not an error. The profile itself is kept.
func (s *RetentionService) DeleteUserData(ctx context.Context, userID uuid.UUID) (int, error) {
	var records []models.AssessmentRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return 0, ErrStorage
	}

	deleted := 0
	for i := range records {
		if err := s.PurgeRecord(ctx, &records[i]); err != nil {
			log.Printf("[Retention] user %s: skipping record %s: %v", userID, records[i].ID, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		log.Printf("[Retention] deleted %d record(s) for user %s", deleted, userID)
	}
	return deleted, nil
}

// Sweep is one reaper pass: it removes records whose scheduled deletion is at
// least the grace period in the past, plus reports that expired without a
// download. Individual failures are logged and skipped; the sweep never
// aborts half way.
func (s *RetentionService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	cutoff := now.Add(-s.policy.DeletionGrace)

	var records []models.AssessmentRecord
	err := s.db.WithContext(ctx).
		Where("scheduled_deletion_at IS NOT NULL AND scheduled_deletion_at <= ?", cutoff).
		Or("report_state = ? AND report_expires_at < ? AND report_downloaded_at IS NULL", models.StateReportReady, now).
		Order("user_id").
		Find(&records).Error
	if err != nil {
		return SweepResult{}, ErrStorage
	}

	result := SweepResult{}
	users := make(map[uuid.UUID]struct{})
	for i := range records {
		rec := &records[i]
		if err := s.PurgeRecord(ctx, rec); err != nil {
			log.Printf("[Retention] sweep: skipping record %s: %v", rec.ID, err)
			continue
		}
		result.Deleted++
		users[rec.UserID] = struct{}{}
	}
	result.UsersAffected = len(users)

	if result.Deleted > 0 {
		log.Printf("[Retention] sweep removed %d record(s) across %d user(s)", result.Deleted, result.UsersAffected)
	}
	return result, nil
}
