package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
	"github.com/vitalis-health/backend/internal/storage"
)

// ReportStream is an opened report artifact ready to be sent to the client.
// The caller streams from it, closes it, and then commits the download.
type ReportStream struct {
	io.ReadCloser
	Size     int64
	Filename string
}

// ReportService coordinates report generation and the one-time download
// against the retention policy.
type ReportService struct {
	db        *gorm.DB
	files     storage.FileStore
	renderer  ReportRenderer
	policy    RetentionPolicy
	retention *RetentionService
	now       func() time.Time
}

func NewReportService(db *gorm.DB, files storage.FileStore, renderer ReportRenderer, policy RetentionPolicy, retention *RetentionService) *ReportService {
	return &ReportService{
		db:        db,
		files:     files,
		renderer:  renderer,
		policy:    policy,
		retention: retention,
		now:       time.Now,
	}
}

func (s *ReportService) getRecord(ctx context.Context, id uuid.UUID) (*models.AssessmentRecord, error) {
	var rec models.AssessmentRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrStorage
	}
	return &rec, nil
}

// Generate renders the PDF, stores it under an unguessable key and starts
// the 24h expiry countdown. If the renderer or store fails, or another
// request generated the report first, the record is left exactly as it was.
func (s *ReportService) Generate(ctx context.Context, id uuid.UUID) (*models.AssessmentRecord, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckGenerateReport(rec); err != nil {
		return nil, err
	}
	result, err := DecodeAnalysis(rec)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", rec.UserID).Error; err != nil {
		return nil, ErrStorage
	}

	data, err := s.renderer.Render(ctx, &profile, rec, result)
	if err != nil {
		return nil, fmt.Errorf("%w: report rendering failed: %v", ErrUpstream, err)
	}

	key := storage.NewReportKey()
	if err := s.files.Save(ctx, key, data); err != nil {
		log.Printf("[Report] failed to store artifact for record %s: %v", id, err)
		return nil, ErrStorage
	}

	res := s.db.WithContext(ctx).Model(&models.AssessmentRecord{}).
		Where("id = ? AND report_state = ?", id, models.StateAnalyzed).
		Updates(s.policy.ReportReadyUpdate(key, s.now()))
	if res.Error != nil {
		s.deleteFile(key)
		return nil, ErrStorage
	}
	if res.RowsAffected == 0 {
		// Lost the race: another request generated (or deleted) first.
		s.deleteFile(key)
		return nil, ErrAlreadyGenerated
	}

	log.Printf("[Report] generated report for record %s", id)
	return s.getRecord(ctx, id)
}

// Open checks the download guards and opens the artifact for streaming. An
// expired report is purged on the spot before the distinct expiry error is
// returned. The downloaded-check runs immediately before the file is opened,
// so a second stream cannot start after a winner committed.
func (s *ReportService) Open(ctx context.Context, id uuid.UUID) (*ReportStream, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckDownload(rec, s.now()); err != nil {
		if errors.Is(err, ErrExpired) {
			// Lazy expiry: detection deletes record and file together.
			if perr := s.retention.PurgeRecord(ctx, rec); perr != nil {
				log.Printf("[Report] failed to purge expired record %s: %v", id, perr)
			}
		}
		return nil, err
	}

	rc, size, err := s.files.Open(ctx, rec.ReportFileRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Reaper got here first; the record is as good as gone.
			return nil, ErrNotFound
		}
		log.Printf("[Report] failed to open artifact for record %s: %v", id, err)
		return nil, ErrStorage
	}

	return &ReportStream{
		ReadCloser: rc,
		Size:       size,
		Filename:   fmt.Sprintf("health-report-%s.pdf", s.now().Format("2006-01-02")),
	}, nil
}

// CommitDownload marks the record downloaded after the bytes were confirmed
// sent. The update is conditional on report_downloaded_at still being NULL:
// exactly one of any concurrent downloads wins, the rest get
// ErrAlreadyDownloaded. On success the artifact is deleted asynchronously
// and the record is scheduled for deletion immediately.
func (s *ReportService) CommitDownload(ctx context.Context, id uuid.UUID) error {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.AssessmentRecord{}).
		Where("id = ? AND report_downloaded_at IS NULL", id).
		Updates(s.policy.DownloadCommitUpdate(rec, s.now()))
	if res.Error != nil {
		return ErrStorage
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyDownloaded
	}

	log.Printf("[Report] record %s downloaded, deletion scheduled", id)
	go s.deleteFile(rec.ReportFileRef)
	return nil
}

// deleteFile removes an artifact outside the request path. Failures are
// logged and left to the reaper; they never fail the surrounding operation.
func (s *ReportService) deleteFile(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("[Report] deferred file delete failed for key %s: %v", key, err)
	}
}

// ReportStatus is the client-facing view of a record's report lifecycle.
type ReportStatus struct {
	State       models.ReportState `json:"state"`
	CanDownload bool               `json:"canDownload"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
}

// Status reports the effective state at call time, deriving expiry lazily.
func (s *ReportService) Status(ctx context.Context, id uuid.UUID) (*ReportStatus, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	state := rec.EffectiveState(now)
	return &ReportStatus{
		State:       state,
		CanDownload: state == models.StateReportReady,
		ExpiresAt:   rec.ReportExpiresAt,
	}, nil
}
