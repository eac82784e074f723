package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
)

const (
	statsCacheKey = "admin:dashboard_stats"
	statsCacheTTL = 30 * time.Second
)

// DashboardStats are aggregate counts for the admin dashboard. Each count is
// individually consistent, but counts are read one after another with no
// isolation across them, so cross-count relations (e.g. downloaded <=
// analyzed) can be momentarily violated under concurrent writes.
type DashboardStats struct {
	TotalProfiles        int64 `json:"totalProfiles"`
	TotalRecords         int64 `json:"totalRecords"`
	AnalyzedRecords      int64 `json:"analyzedRecords"`
	DownloadedRecords    int64 `json:"downloadedRecords"`
	UsersWithLiveData    int64 `json:"usersWithLiveData"`
	UsersWithDeletedData int64 `json:"usersWithDeletedData"`
}

// StatsService computes read-only projections over the record store. It
// never exposes individual records. Redis caching is optional; with no
// client every call hits the database.
type StatsService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewStatsService(db *gorm.DB, redisClient *redis.Client) *StatsService {
	return &StatsService{db: db, redis: redisClient}
}

// GetStats returns a point-in-time snapshot, served from a short-lived cache
// when available.
func (s *StatsService) GetStats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	if err := db.Model(&models.UserProfile{}).Count(&stats.TotalProfiles).Error; err != nil {
		return nil, ErrStorage
	}
	if err := db.Model(&models.AssessmentRecord{}).Count(&stats.TotalRecords).Error; err != nil {
		return nil, ErrStorage
	}
	if err := db.Model(&models.AssessmentRecord{}).
		Where("analysis_result IS NOT NULL").
		Count(&stats.AnalyzedRecords).Error; err != nil {
		return nil, ErrStorage
	}
	if err := db.Model(&models.AssessmentRecord{}).
		Where("report_downloaded_at IS NOT NULL").
		Count(&stats.DownloadedRecords).Error; err != nil {
		return nil, ErrStorage
	}
	if err := db.Model(&models.AssessmentRecord{}).
		Distinct("user_id").
		Count(&stats.UsersWithLiveData).Error; err != nil {
		return nil, ErrStorage
	}

	// "Deleted data" counts profiles that once had records and no longer do,
	// not profiles that never submitted anything.
	liveUsers := s.db.Model(&models.AssessmentRecord{}).Distinct("user_id").Select("user_id")
	if err := db.Model(&models.UserProfile{}).
		Where("ever_had_data = ? AND id NOT IN (?)", true, liveUsers).
		Count(&stats.UsersWithDeletedData).Error; err != nil {
		return nil, ErrStorage
	}

	s.toCache(ctx, stats)
	return stats, nil
}

func (s *StatsService) fromCache(ctx context.Context) *DashboardStats {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *DashboardStats) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, statsCacheKey, data, statsCacheTTL).Err(); err != nil {
		log.Printf("[Stats] failed to cache dashboard stats: %v", err)
	}
}
