package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/metrics"
)

type fakeOverdueReader struct {
	jobs []models.Job
	err  error
	last time.Time
}

func (f *fakeOverdueReader) ListOverdue(_ context.Context, now time.Time) ([]models.Job, error) {
	f.last = now
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs, nil
}

func TestOverdueAlertJobSweep(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reader := &fakeOverdueReader{jobs: []models.Job{
		{
			ID:       uuid.New(),
			AssetID:  uuid.New(),
			Status:   enums.JobStatusInProgress,
			Priority: enums.JobPriorityUrgent,
			DueDate:  &due,
		},
	}}

	jobIface, err := NewOverdueAlertJob(OverdueAlertJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Reader:  reader,
		Metrics: metrics.NewQueueMetrics(nil),
	})
	if err != nil {
		t.Fatalf("NewOverdueAlertJob: %v", err)
	}

	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	job := jobIface.(*overdueAlertJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reader.last.Equal(now) {
		t.Fatalf("expected reader called with %s, got %s", now, reader.last)
	}
}

func TestOverdueAlertJobPropagatesError(t *testing.T) {
	reader := &fakeOverdueReader{err: errors.New("boom")}
	jobIface, err := NewOverdueAlertJob(OverdueAlertJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Reader: reader,
	})
	if err != nil {
		t.Fatalf("NewOverdueAlertJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
