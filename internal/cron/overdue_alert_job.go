package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/metrics"
)

// OverdueAlertJobParams configure the overdue job sweep.
type OverdueAlertJobParams struct {
	Logger  *logger.Logger
	Reader  overdueJobReader
	Metrics *metrics.QueueMetrics
}

type overdueJobReader interface {
	ListOverdue(ctx context.Context, now time.Time) ([]models.Job, error)
}

// NewOverdueAlertJob builds the cron job that surfaces overdue work. It only
// observes; job state never changes on a timer.
func NewOverdueAlertJob(params OverdueAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("jobs reader required")
	}
	return &overdueAlertJob{
		logg:    params.Logger,
		reader:  params.Reader,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type overdueAlertJob struct {
	logg    *logger.Logger
	reader  overdueJobReader
	metrics *metrics.QueueMetrics
	now     func() time.Time
}

func (j *overdueAlertJob) Name() string { return "overdue-alert" }

func (j *overdueAlertJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	overdue, err := j.reader.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("overdue sweep: %w", err)
	}

	if j.metrics != nil {
		j.metrics.SetOverdue(len(overdue))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": len(overdue)})
	if len(overdue) == 0 {
		j.logg.Info(logCtx, "no overdue jobs")
		return nil
	}
	for _, job := range overdue {
		jobCtx := j.logg.WithFields(ctx, map[string]any{
			"job_id":   job.ID.String(),
			"asset_id": job.AssetID.String(),
			"priority": job.Priority,
			"due_date": job.DueDate,
		})
		j.logg.Warn(jobCtx, "job past due date")
	}
	j.logg.Warn(logCtx, "overdue sweep complete")
	return nil
}
