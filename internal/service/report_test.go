package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-health/backend/internal/models"
	"github.com/vitalis-health/backend/internal/storage"
)

func TestGenerateReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.analyzedRecord(t, ctx)

	rec, err := env.reports.Generate(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StateReportReady, rec.ReportState)
	assert.NotEmpty(t, rec.ReportFileRef)
	require.NotNil(t, rec.ReportGeneratedAt)
	require.NotNil(t, rec.ReportExpiresAt)
	assert.Equal(t, 24*time.Hour, rec.ReportExpiresAt.Sub(*rec.ReportGeneratedAt))

	// The artifact exists and is a PDF.
	rc, size, err := env.files.Open(ctx, rec.ReportFileRef)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, size, int64(len(data)))
	assert.True(t, len(data) > 4 && string(data[:4]) == "%PDF")
}

func TestGenerateReportRequiresAnalysis(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.startRecord(t, ctx)
	_, err := env.reports.Generate(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.reports.Generate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateReportTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)

	_, err := env.reports.Generate(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
}

func TestDownloadFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)

	stream, err := env.reports.Open(ctx, rec.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, stream.Size, int64(len(data)))
	assert.Contains(t, stream.Filename, ".pdf")

	require.NoError(t, env.reports.CommitDownload(ctx, rec.ID))

	stored, err := env.assessment.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateDownloaded, stored.ReportState)
	assert.NotNil(t, stored.ReportDownloadedAt)
	assert.NotNil(t, stored.ScheduledDeletionAt)

	// The second attempt is refused before any bytes flow.
	_, err = env.reports.Open(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrAlreadyDownloaded)
	assert.ErrorIs(t, env.reports.CommitDownload(ctx, rec.ID), ErrAlreadyDownloaded)
}

func TestConcurrentDownloadCommitsHaveOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.reports.CommitDownload(ctx, rec.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyDownloaded)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestExpiredDownloadPurgesRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)
	fileRef := rec.ReportFileRef

	// Observe the record 25 hours later, past the 24h window.
	env.reports.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err := env.reports.Open(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// Detection deletes record and artifact on the spot.
	_, err = env.assessment.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = env.files.Open(ctx, fileRef)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFailedStreamLeavesDownloadRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.readyRecord(t, ctx)

	// A stream that was opened but never committed does not consume the
	// single download.
	stream, err := env.reports.Open(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	stream, err = env.reports.Open(ctx, rec.ID)
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestReportStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.analyzedRecord(t, ctx)

	status, err := env.reports.Status(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateAnalyzed, status.State)
	assert.False(t, status.CanDownload)
	assert.Nil(t, status.ExpiresAt)

	rec, err = env.reports.Generate(ctx, rec.ID)
	require.NoError(t, err)

	status, err = env.reports.Status(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateReportReady, status.State)
	assert.True(t, status.CanDownload)
	require.NotNil(t, status.ExpiresAt)

	// Expiry is derived at read time without touching the record.
	env.reports.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	status, err = env.reports.Status(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateExpired, status.State)
	assert.False(t, status.CanDownload)
}
