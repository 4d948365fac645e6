package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

type fakeJobRepo struct {
	jobs    map[uuid.UUID]*models.Job
	updates map[uuid.UUID]map[string]any
	deleted []uuid.UUID
	open    []models.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:    map[uuid.UUID]*models.Job{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeJobRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeJobRepo) Create(_ context.Context, job *models.Job) (*models.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	copied := *job
	f.jobs[job.ID] = &copied
	return job, nil
}

func (f *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if job, ok := f.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeJobRepo) FindActiveByAsset(_ context.Context, assetID uuid.UUID) ([]models.Job, error) {
	var active []models.Job
	for _, job := range f.jobs {
		if job.AssetID == assetID && !job.Status.IsTerminal() {
			active = append(active, *job)
		}
	}
	return active, nil
}

func (f *fakeJobRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates[id] = updates
	job, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		job.Status = v.(enums.JobStatus)
	}
	if v, ok := updates["technician_id"]; ok {
		tid := v.(uuid.UUID)
		job.TechnicianID = &tid
	}
	return nil
}

func (f *fakeJobRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.jobs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeJobRepo) ListByAsset(context.Context, uuid.UUID) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListByTechnician(context.Context, uuid.UUID) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListByStatus(context.Context, enums.JobStatus) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListOverdue(context.Context, time.Time) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListOpen(context.Context) ([]models.Job, error) {
	return f.open, nil
}

func (f *fakeJobRepo) Search(context.Context, string) ([]models.Job, error) {
	return nil, nil
}

type fakeAssetRepo struct {
	assets  map[uuid.UUID]*models.Asset
	updates map[uuid.UUID]map[string]any
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{
		assets:  map[uuid.UUID]*models.Asset{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeAssetRepo) WithTx(*gorm.DB) assets.Repository { return f }

func (f *fakeAssetRepo) Create(_ context.Context, asset *models.Asset) (*models.Asset, error) {
	f.assets[asset.ID] = asset
	return asset, nil
}

func (f *fakeAssetRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Asset, error) {
	if asset, ok := f.assets[id]; ok {
		copied := *asset
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssetRepo) FindByCode(context.Context, string) (*models.Asset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssetRepo) FindByTag(context.Context, string) (*models.Asset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssetRepo) List(context.Context, pagination.Params, assets.ListFilters) (*assets.AssetList, error) {
	return &assets.AssetList{}, nil
}

func (f *fakeAssetRepo) ListAll(context.Context) ([]models.Asset, error) { return nil, nil }

func (f *fakeAssetRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates[id] = updates
	asset, ok := f.assets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		asset.Status = v.(enums.AssetStatus)
	}
	return nil
}

func (f *fakeAssetRepo) MarkAudited(context.Context, uuid.UUID, time.Time) error { return nil }

type loggedChange struct {
	assetID uuid.UUID
	field   string
	actor   string
	old     *string
	new     *string
}

type fakeHistory struct {
	changes []loggedChange
}

func (f *fakeHistory) LogStatusChange(_ context.Context, _ *gorm.DB, assetID uuid.UUID, _, _ enums.AssetStatus, actor string) error {
	f.changes = append(f.changes, loggedChange{assetID: assetID, field: "status", actor: actor})
	return nil
}

func (f *fakeHistory) LogFieldChange(_ context.Context, _ *gorm.DB, assetID uuid.UUID, field string, old, new *string, actor string) error {
	f.changes = append(f.changes, loggedChange{assetID: assetID, field: field, actor: actor, old: old, new: new})
	return nil
}

func (f *fakeHistory) LogAssignmentChange(_ context.Context, _ *gorm.DB, assetID uuid.UUID, field string, _, _ *uuid.UUID, actor string) error {
	f.changes = append(f.changes, loggedChange{assetID: assetID, field: field, actor: actor})
	return nil
}

func (f *fakeHistory) ListByAsset(context.Context, uuid.UUID) ([]models.AssetHistory, error) {
	return nil, nil
}

var _ history.Service = (*fakeHistory)(nil)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type jobFixture struct {
	svc      Service
	repo     *fakeJobRepo
	assets   *fakeAssetRepo
	history  *fakeHistory
	outbox   *fakeOutbox
	now      time.Time
	assetID  uuid.UUID
	techID   uuid.UUID
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeJobRepo()
	assetRepo := newFakeAssetRepo()
	hist := &fakeHistory{}
	ob := &fakeOutbox{}

	assetID := uuid.New()
	assetRepo.assets[assetID] = &models.Asset{
		ID:     assetID,
		Tag:    "AT-0001",
		Status: enums.AssetStatusInStock,
	}

	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Assets:  assetRepo,
		History: hist,
		Tx:      fakeTxRunner{},
		Outbox:  ob,
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)

	return &jobFixture{
		svc:     svc,
		repo:    repo,
		assets:  assetRepo,
		history: hist,
		outbox:  ob,
		now:     now,
		assetID: assetID,
		techID:  uuid.New(),
	}
}

func (f *jobFixture) createJob(t *testing.T, input CreateInput) *models.Job {
	t.Helper()
	if input.AssetID == uuid.Nil {
		input.AssetID = f.assetID
	}
	if input.JobType == "" {
		input.JobType = enums.JobTypeImaging
	}
	if input.Actor == "" {
		input.Actor = "Test Tech"
	}
	job, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	return job
}

func TestCreateJobDefaultsToPending(t *testing.T) {
	f := newJobFixture(t)

	job := f.createJob(t, CreateInput{})

	require.Equal(t, enums.JobStatusPending, job.Status)
	require.Equal(t, enums.JobPriorityNormal, job.Priority)
	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventJobCreated, f.outbox.events[0].EventType)
	require.Equal(t, enums.AggregateJob, f.outbox.events[0].AggregateType)
}

func TestCreateJobWithScheduleStartsScheduled(t *testing.T) {
	f := newJobFixture(t)
	when := f.now.Add(24 * time.Hour)

	job := f.createJob(t, CreateInput{ScheduledAt: &when})

	require.Equal(t, enums.JobStatusScheduled, job.Status)
}

func TestCreateJobRejectsUnknownAsset(t *testing.T) {
	f := newJobFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		AssetID: uuid.New(),
		JobType: enums.JobTypeImaging,
		Actor:   "Test Tech",
	})

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateJobRejectsSecondActiveJob(t *testing.T) {
	f := newJobFixture(t)
	f.createJob(t, CreateInput{})

	_, err := f.svc.Create(context.Background(), CreateInput{
		AssetID: f.assetID,
		JobType: enums.JobTypeMaintenance,
		Actor:   "Test Tech",
	})

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestStartJobMovesAssetToMaintenance(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	started, err := f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")
	require.NoError(t, err)

	require.Equal(t, enums.JobStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)
	require.Equal(t, &f.techID, started.TechnicianID)
	require.Equal(t, enums.AssetStatusMaintenance, f.assets.assets[f.assetID].Status)
	require.Equal(t, enums.EventJobStarted, f.outbox.events[len(f.outbox.events)-1].EventType)
}

func TestStartJobRequiresTechnician(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	_, err := f.svc.Start(context.Background(), job.ID, uuid.Nil, "Test Tech")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStartJobRejectsTerminalState(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})
	_, err := f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), job.ID, nil, "Test Tech")
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCompleteJobRestoresAssetStatus(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})
	_, err := f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")
	require.NoError(t, err)

	done, err := f.svc.Complete(context.Background(), job.ID, nil, "Test Tech")
	require.NoError(t, err)

	require.Equal(t, enums.JobStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, enums.AssetStatusInStock, f.assets.assets[f.assetID].Status)
}

func TestCompleteJobRestoresActiveWhenAssigned(t *testing.T) {
	f := newJobFixture(t)
	employee := uuid.New()
	f.assets.assets[f.assetID].AssignedEmployeeID = &employee

	job := f.createJob(t, CreateInput{})
	_, err := f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), job.ID, nil, "Test Tech")
	require.NoError(t, err)

	require.Equal(t, enums.AssetStatusActive, f.assets.assets[f.assetID].Status)
}

func TestCompleteJobRejectsNonRunningJob(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	_, err := f.svc.Complete(context.Background(), job.ID, nil, "Test Tech")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelReleasesAssetOnlyWhenRunning(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	// Cancelling a pending job never touches the asset.
	_, err := f.svc.Cancel(context.Background(), job.ID, nil, "Test Tech")
	require.NoError(t, err)
	require.Equal(t, enums.AssetStatusInStock, f.assets.assets[f.assetID].Status)
	require.Equal(t, enums.EventJobCancelled, f.outbox.events[len(f.outbox.events)-1].EventType)
}

func TestFailJobAppendsNotes(t *testing.T) {
	f := newJobFixture(t)
	existing := "initial note"
	job := f.createJob(t, CreateInput{Notes: &existing})
	_, err := f.svc.Start(context.Background(), job.ID, f.techID, "Test Tech")
	require.NoError(t, err)

	reason := "disk failure"
	failed, err := f.svc.Fail(context.Background(), job.ID, &reason, "Test Tech")
	require.NoError(t, err)

	require.Equal(t, enums.JobStatusFailed, failed.Status)
	require.NotNil(t, failed.Notes)
	require.Contains(t, *failed.Notes, "initial note")
	require.Contains(t, *failed.Notes, "disk failure")
	require.Equal(t, enums.AssetStatusInStock, f.assets.assets[f.assetID].Status)
}

func TestTerminateRejectsAlreadyTerminal(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})
	_, err := f.svc.Cancel(context.Background(), job.ID, nil, "Test Tech")
	require.NoError(t, err)

	_, err = f.svc.Fail(context.Background(), job.ID, nil, "Test Tech")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateJobLogsFieldChanges(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})
	high := enums.JobPriorityHigh

	updated, err := f.svc.Update(context.Background(), job.ID, UpdateInput{
		Priority: &high,
		Actor:    "Admin User",
	})
	require.NoError(t, err)

	require.Equal(t, enums.JobPriorityHigh, updated.Priority)
	require.Len(t, f.history.changes, 1)
	require.Equal(t, "job_priority", f.history.changes[0].field)
	require.Equal(t, "Admin User", f.history.changes[0].actor)
}

func TestUpdateJobStatusBackfillsTimestamps(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})
	completed := enums.JobStatusCompleted

	updated, err := f.svc.Update(context.Background(), job.ID, UpdateInput{
		Status: &completed,
		Actor:  "Admin User",
	})
	require.NoError(t, err)

	require.Equal(t, enums.JobStatusCompleted, updated.Status)
	require.NotNil(t, updated.StartedAt)
	require.NotNil(t, updated.CompletedAt)
}

func TestUpdateJobIgnoresUnchangedFields(t *testing.T) {
	f := newJobFixture(t)
	when := f.now.Add(48 * time.Hour)
	due := f.now.Add(72 * time.Hour)
	job := f.createJob(t, CreateInput{
		TechnicianID: &f.techID,
		ScheduledAt:  &when,
		DueDate:      &due,
	})
	baseline := len(f.outbox.events)

	_, err := f.svc.Update(context.Background(), job.ID, UpdateInput{
		TechnicianID: &f.techID,
		ScheduledAt:  &when,
		DueDate:      &due,
		Actor:        "Admin User",
	})
	require.NoError(t, err)

	require.Empty(t, f.history.changes)
	require.NotContains(t, f.repo.updates, job.ID)
	require.Len(t, f.outbox.events, baseline)
}

func TestUpdateJobReportsNotesChange(t *testing.T) {
	f := newJobFixture(t)
	initial := "imaging queued"
	job := f.createJob(t, CreateInput{Notes: &initial})
	revised := "imaging queued\nawaiting parts"

	_, err := f.svc.Update(context.Background(), job.ID, UpdateInput{
		Notes: &revised,
		Actor: "Admin User",
	})
	require.NoError(t, err)

	require.Len(t, f.history.changes, 1)
	change := f.history.changes[0]
	require.Equal(t, "job_notes", change.field)
	require.NotNil(t, change.old)
	require.Equal(t, initial, *change.old)
	require.NotNil(t, change.new)
	require.Equal(t, revised, *change.new)
}

func TestUpdateJobPublishesOutboxEvents(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	high := enums.JobPriorityHigh
	_, err := f.svc.Update(context.Background(), job.ID, UpdateInput{Priority: &high, Actor: "Admin User"})
	require.NoError(t, err)
	require.Equal(t, enums.EventJobUpdated, f.outbox.events[len(f.outbox.events)-1].EventType)

	// A status change through the patch publishes the same lifecycle event
	// the dedicated transition would.
	completed := enums.JobStatusCompleted
	_, err = f.svc.Update(context.Background(), job.ID, UpdateInput{Status: &completed, Actor: "Admin User"})
	require.NoError(t, err)
	require.Equal(t, enums.EventJobCompleted, f.outbox.events[len(f.outbox.events)-1].EventType)

	// A re-open has no dedicated transition, so it falls back to job_updated.
	pending := enums.JobStatusPending
	_, err = f.svc.Update(context.Background(), job.ID, UpdateInput{Status: &pending, Actor: "Admin User"})
	require.NoError(t, err)
	require.Equal(t, enums.EventJobUpdated, f.outbox.events[len(f.outbox.events)-1].EventType)
}

func TestDeleteJobRemovesRecord(t *testing.T) {
	f := newJobFixture(t)
	job := f.createJob(t, CreateInput{})

	require.NoError(t, f.svc.Delete(context.Background(), job.ID))
	require.Contains(t, f.repo.deleted, job.ID)

	err := f.svc.Delete(context.Background(), job.ID)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListByPriorityOrdersQueue(t *testing.T) {
	f := newJobFixture(t)
	past := f.now.Add(-time.Hour)
	f.repo.open = []models.Job{
		{Priority: enums.JobPriorityLow, Status: enums.JobStatusPending, CreatedAt: past},
		{Priority: enums.JobPriorityUrgent, Status: enums.JobStatusPending, CreatedAt: f.now},
		{Priority: enums.JobPriorityNormal, Status: enums.JobStatusInProgress, CreatedAt: past},
	}

	queue, err := f.svc.ListByPriority(context.Background())
	require.NoError(t, err)

	require.Len(t, queue, 3)
	require.Equal(t, enums.JobPriorityUrgent, queue[0].Priority)
	require.Equal(t, enums.JobPriorityNormal, queue[1].Priority)
	require.Equal(t, enums.JobPriorityLow, queue[2].Priority)
}

func TestSearchRequiresTerm(t *testing.T) {
	f := newJobFixture(t)

	_, err := f.svc.Search(context.Background(), "   ")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
