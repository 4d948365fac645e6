package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput carries the fields needed to open a job against an asset.
type CreateInput struct {
	AssetID      uuid.UUID
	TechnicianID *uuid.UUID
	JobType      enums.JobType
	Priority     enums.JobPriority
	ScheduledAt  *time.Time
	DueDate      *time.Time
	Notes        *string
	Actor        string
}

// UpdateInput is the generic field-level patch. Nil pointers leave fields
// untouched; Status here is deliberately unrestricted by the transition
// table (terminal jobs can be re-opened through this path).
type UpdateInput struct {
	TechnicianID *uuid.UUID
	Status       *enums.JobStatus
	Priority     *enums.JobPriority
	ScheduledAt  *time.Time
	DueDate      *time.Time
	Notes        *string
	Actor        string
}

// Service owns the job lifecycle state machine and keeps the linked asset's
// status consistent with job progress.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Job, error)
	Start(ctx context.Context, jobID, technicianID uuid.UUID, actor string) (*models.Job, error)
	Complete(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error)
	Fail(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error)
	Cancel(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error)
	Update(ctx context.Context, jobID uuid.UUID, input UpdateInput) (*models.Job, error)
	Delete(ctx context.Context, jobID uuid.UUID) error
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]models.Job, error)
	ListByStatus(ctx context.Context, status enums.JobStatus) ([]models.Job, error)
	ListOverdue(ctx context.Context) ([]models.Job, error)
	ListByPriority(ctx context.Context) ([]models.Job, error)
	Search(ctx context.Context, term string) ([]models.Job, error)
}

type service struct {
	repo    Repository
	assets  assets.Repository
	history history.Service
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// ServiceParams collects the job engine dependencies.
type ServiceParams struct {
	Repo    Repository
	Assets  assets.Repository
	History history.Service
	Tx      txRunner
	Outbox  outboxPublisher
	Now     func() time.Time
}

// NewService builds the job engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("assets repository required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		assets:  params.Assets,
		history: params.History,
		tx:      params.Tx,
		outbox:  params.Outbox,
		now:     now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Job, error) {
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	if !input.JobType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job type")
	}
	if input.Priority == "" {
		input.Priority = enums.JobPriorityNormal
	}
	if !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job priority")
	}

	var created *models.Job
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assetRepo := s.assets.WithTx(tx)
		if _, err := assetRepo.FindByID(ctx, input.AssetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "asset does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}

		repo := s.repo.WithTx(tx)
		active, err := repo.FindActiveByAsset(ctx, input.AssetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active jobs")
		}
		if len(active) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active job already exists for this asset")
		}

		status := enums.JobStatusPending
		if input.ScheduledAt != nil {
			status = enums.JobStatusScheduled
		}
		job := &models.Job{
			AssetID:      input.AssetID,
			TechnicianID: input.TechnicianID,
			JobType:      input.JobType,
			Status:       status,
			Priority:     input.Priority,
			ScheduledAt:  input.ScheduledAt,
			DueDate:      input.DueDate,
			Notes:        input.Notes,
		}
		created, err = repo.Create(ctx, job)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
		}
		return s.emitJobEvent(ctx, tx, enums.EventJobCreated, created, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Start(ctx context.Context, jobID, technicianID uuid.UUID, actor string) (*models.Job, error) {
	if technicianID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "technician id required")
	}

	var started *models.Job
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := s.loadJob(ctx, repo, jobID)
		if err != nil {
			return err
		}
		if job.Status != enums.JobStatusPending && job.Status != enums.JobStatusScheduled {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot start job in status %s", job.Status))
		}

		now := s.now()
		updates := map[string]any{
			"status":        enums.JobStatusInProgress,
			"technician_id": technicianID,
		}
		job.Status = enums.JobStatusInProgress
		job.TechnicianID = &technicianID
		if job.StartedAt == nil {
			updates["started_at"] = now
			job.StartedAt = &now
		}
		if err := repo.Update(ctx, job.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job")
		}

		if err := s.mirrorAssetStatus(ctx, tx, job.AssetID, enums.AssetStatusMaintenance, actor); err != nil {
			return err
		}

		started = job
		return s.emitJobEvent(ctx, tx, enums.EventJobStarted, job, actor)
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

func (s *service) Complete(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error) {
	var completed *models.Job
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := s.loadJob(ctx, repo, jobID)
		if err != nil {
			return err
		}
		if job.Status != enums.JobStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot complete job in status %s", job.Status))
		}

		now := s.now()
		updates := map[string]any{
			"status":       enums.JobStatusCompleted,
			"completed_at": now,
		}
		job.Status = enums.JobStatusCompleted
		job.CompletedAt = &now
		// Backfill keeps duration well-defined even if the start stamp was lost.
		if job.StartedAt == nil {
			updates["started_at"] = now
			job.StartedAt = &now
		}
		if notes != nil {
			merged := appendNotes(job.Notes, *notes)
			updates["notes"] = *merged
			job.Notes = merged
		}
		if err := repo.Update(ctx, job.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job")
		}

		asset, err := s.assets.WithTx(tx).FindByID(ctx, job.AssetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}
		restored := enums.AssetStatusInStock
		if asset.IsAssigned() {
			restored = enums.AssetStatusActive
		}
		if err := s.mirrorAssetStatus(ctx, tx, job.AssetID, restored, actor); err != nil {
			return err
		}

		completed = job
		return s.emitJobEvent(ctx, tx, enums.EventJobCompleted, job, actor)
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *service) Fail(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error) {
	return s.terminate(ctx, jobID, enums.JobStatusFailed, enums.EventJobFailed, notes, actor)
}

func (s *service) Cancel(ctx context.Context, jobID uuid.UUID, notes *string, actor string) (*models.Job, error) {
	return s.terminate(ctx, jobID, enums.JobStatusCancelled, enums.EventJobCancelled, notes, actor)
}

func (s *service) terminate(ctx context.Context, jobID uuid.UUID, target enums.JobStatus, eventType enums.OutboxEventType, notes *string, actor string) (*models.Job, error) {
	var result *models.Job
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := s.loadJob(ctx, repo, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("job already in terminal status %s", job.Status))
		}

		wasInProgress := job.Status == enums.JobStatusInProgress
		updates := map[string]any{"status": target}
		job.Status = target
		if notes != nil {
			merged := appendNotes(job.Notes, *notes)
			updates["notes"] = *merged
			job.Notes = merged
		}
		if err := repo.Update(ctx, job.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job")
		}

		// An interrupted in-progress job releases the asset from maintenance.
		if wasInProgress {
			asset, err := s.assets.WithTx(tx).FindByID(ctx, job.AssetID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
			}
			restored := enums.AssetStatusInStock
			if asset.IsAssigned() {
				restored = enums.AssetStatusActive
			}
			if err := s.mirrorAssetStatus(ctx, tx, job.AssetID, restored, actor); err != nil {
				return err
			}
		}

		result = job
		return s.emitJobEvent(ctx, tx, eventType, job, actor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// patchStatusEvents maps a status reached through the generic patch to the
// lifecycle event the dedicated transition would have published, so consumers
// see the same signal regardless of which path made the change. Statuses with
// no dedicated transition (a re-open to pending or scheduled) fall back to
// job_updated.
var patchStatusEvents = map[enums.JobStatus]enums.OutboxEventType{
	enums.JobStatusInProgress: enums.EventJobStarted,
	enums.JobStatusCompleted:  enums.EventJobCompleted,
	enums.JobStatusFailed:     enums.EventJobFailed,
	enums.JobStatusCancelled:  enums.EventJobCancelled,
}

// Update applies the generic field patch. Each field is compared against the
// current value and only real changes are reported to the asset history log
// and persisted; a status change derives started_at/completed_at identically
// to the dedicated transitions, and the transition table is intentionally not
// enforced here.
func (s *service) Update(ctx context.Context, jobID uuid.UUID, input UpdateInput) (*models.Job, error) {
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job priority")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job status")
	}

	var updated *models.Job
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := s.loadJob(ctx, repo, jobID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		statusChanged := false

		if input.Status != nil && *input.Status != job.Status {
			statusChanged = true
			old := job.Status.String()
			newVal := input.Status.String()
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_status", &old, &newVal, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["status"] = *input.Status
			job.Status = *input.Status

			now := s.now()
			switch *input.Status {
			case enums.JobStatusInProgress:
				if job.StartedAt == nil {
					updates["started_at"] = now
					job.StartedAt = &now
				}
			case enums.JobStatusCompleted:
				if job.StartedAt == nil {
					updates["started_at"] = now
					job.StartedAt = &now
				}
				if job.CompletedAt == nil {
					updates["completed_at"] = now
					job.CompletedAt = &now
				}
			}
		}

		if input.Priority != nil && *input.Priority != job.Priority {
			old := job.Priority.String()
			newVal := input.Priority.String()
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_priority", &old, &newVal, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["priority"] = *input.Priority
			job.Priority = *input.Priority
		}

		if input.TechnicianID != nil && (job.TechnicianID == nil || *job.TechnicianID != *input.TechnicianID) {
			old := uuidString(job.TechnicianID)
			newVal := input.TechnicianID.String()
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_technician", old, &newVal, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["technician_id"] = *input.TechnicianID
			job.TechnicianID = input.TechnicianID
		}

		if input.ScheduledAt != nil && (job.ScheduledAt == nil || !job.ScheduledAt.Equal(*input.ScheduledAt)) {
			old := timeString(job.ScheduledAt)
			newVal := input.ScheduledAt.Format(time.RFC3339)
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_scheduled_at", old, &newVal, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["scheduled_at"] = *input.ScheduledAt
			job.ScheduledAt = input.ScheduledAt
		}

		if input.DueDate != nil && (job.DueDate == nil || !job.DueDate.Equal(*input.DueDate)) {
			old := timeString(job.DueDate)
			newVal := input.DueDate.Format(time.RFC3339)
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_due_date", old, &newVal, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["due_date"] = *input.DueDate
			job.DueDate = input.DueDate
		}

		if input.Notes != nil && (job.Notes == nil || *job.Notes != *input.Notes) {
			if err := s.history.LogFieldChange(ctx, tx, job.AssetID, "job_notes", job.Notes, input.Notes, input.Actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log job change")
			}
			updates["notes"] = *input.Notes
			job.Notes = input.Notes
		}

		if len(updates) > 0 {
			if err := repo.Update(ctx, job.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job")
			}
			eventType := enums.EventJobUpdated
			if statusChanged {
				if mapped, ok := patchStatusEvents[job.Status]; ok {
					eventType = mapped
				}
			}
			if err := s.emitJobEvent(ctx, tx, eventType, job, input.Actor); err != nil {
				return err
			}
		}

		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, jobID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.loadJob(ctx, repo, jobID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, jobID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.loadJob(ctx, s.repo, jobID)
}

func (s *service) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error) {
	rows, err := s.repo.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return rows, nil
}

func (s *service) ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]models.Job, error) {
	rows, err := s.repo.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return rows, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.JobStatus) ([]models.Job, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job status")
	}
	rows, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return rows, nil
}

func (s *service) ListOverdue(ctx context.Context) ([]models.Job, error) {
	rows, err := s.repo.ListOverdue(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue jobs")
	}
	return rows, nil
}

// ListByPriority returns the open queue in presentation order.
func (s *service) ListByPriority(ctx context.Context) ([]models.Job, error) {
	rows, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open jobs")
	}
	SortQueue(rows, s.now())
	return rows, nil
}

func (s *service) Search(ctx context.Context, term string) ([]models.Job, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term required")
	}
	rows, err := s.repo.Search(ctx, term)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search jobs")
	}
	return rows, nil
}

func (s *service) loadJob(ctx context.Context, repo Repository, jobID uuid.UUID) (*models.Job, error) {
	job, err := repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}

// mirrorAssetStatus moves the asset to target if it is not there already,
// recording the prior value in the history log.
func (s *service) mirrorAssetStatus(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, target enums.AssetStatus, actor string) error {
	assetRepo := s.assets.WithTx(tx)
	asset, err := assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	if asset.Status == target {
		return nil
	}
	if err := s.history.LogStatusChange(ctx, tx, asset.ID, asset.Status, target, actor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log asset status change")
	}
	if err := assetRepo.Update(ctx, asset.ID, map[string]any{"status": target}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update asset status")
	}
	return nil
}

func (s *service) emitJobEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, job *models.Job, actor string) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateJob,
		AggregateID:   job.ID,
		Version:       payloads.SchemaVersion,
		Actor:         &outbox.ActorRef{DisplayName: actor},
		Data: payloads.JobEvent{
			JobID:        job.ID,
			AssetID:      job.AssetID,
			TechnicianID: job.TechnicianID,
			JobType:      job.JobType,
			Status:       job.Status,
			Priority:     job.Priority,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

// appendNotes concatenates rather than overwrites so failure notes preserve
// the prior trail.
func appendNotes(existing *string, extra string) *string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return existing
	}
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &extra
	}
	merged := *existing + "\n" + extra
	return &merged
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
