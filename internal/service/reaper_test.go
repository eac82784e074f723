package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-health/backend/internal/models"
)

func TestReaperSweepsImmediatelyOnStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	twoDaysAgo := time.Now().Add(-48 * time.Hour)
	rec := env.seedRecord(t, ctx, uuid.New(), func(r *models.AssessmentRecord) {
		r.ScheduledDeletionAt = &twoDaysAgo
	})

	// A long interval proves the first sweep does not wait for a tick.
	reaper := NewReaper(env.retention, time.Hour)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reaper.Run(runCtx)
	}()

	require.Eventually(t, func() bool {
		var count int64
		err := env.db.Model(&models.AssessmentRecord{}).Where("id = ?", rec.ID).Count(&count).Error
		return err == nil && count == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}

func TestNewReaperDefaultsInterval(t *testing.T) {
	r := NewReaper(nil, 0)
	assert.Equal(t, DefaultReaperInterval, r.interval)

	r = NewReaper(nil, 5*time.Minute)
	assert.Equal(t, 5*time.Minute, r.interval)
}
