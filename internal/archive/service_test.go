package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/audits"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

type fakeArchiveRepo struct {
	records []models.AssetAuditDeleteHistory
	wiped   bool
}

func (f *fakeArchiveRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeArchiveRepo) Create(_ context.Context, record *models.AssetAuditDeleteHistory) (*models.AssetAuditDeleteHistory, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.records = append(f.records, *record)
	return record, nil
}

func (f *fakeArchiveRepo) List(_ context.Context, sessionID string) ([]models.AssetAuditDeleteHistory, error) {
	if sessionID == "" {
		return f.records, nil
	}
	var matched []models.AssetAuditDeleteHistory
	for _, rec := range f.records {
		if rec.AuditSessionID == sessionID {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

func (f *fakeArchiveRepo) Count(context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeArchiveRepo) DeleteAll(context.Context) error {
	f.records = nil
	f.wiped = true
	return nil
}

type fakeAuditRepo struct {
	audits  map[uuid.UUID]*models.AssetAudit
	updates map[uuid.UUID]map[string]any
	wiped   bool
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{
		audits:  map[uuid.UUID]*models.AssetAudit{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeAuditRepo) WithTx(*gorm.DB) audits.Repository { return f }

func (f *fakeAuditRepo) Create(_ context.Context, audit *models.AssetAudit) (*models.AssetAudit, error) {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	f.audits[audit.ID] = audit
	return audit, nil
}

func (f *fakeAuditRepo) FindByID(_ context.Context, id uuid.UUID) (*models.AssetAudit, error) {
	if audit, ok := f.audits[id]; ok {
		copied := *audit
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuditRepo) FindLatestInSession(context.Context, string, string) (*models.AssetAudit, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuditRepo) List(context.Context, audits.ListFilters) ([]models.AssetAudit, error) {
	return nil, nil
}

func (f *fakeAuditRepo) ListBySession(context.Context, string) ([]models.AssetAudit, error) {
	return nil, nil
}

func (f *fakeAuditRepo) SessionTags(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeAuditRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates[id] = updates
	audit, ok := f.audits[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["is_deleted"]; ok {
		audit.IsDeleted = v.(bool)
	}
	if v, ok := updates["status"]; ok {
		audit.Status = v.(enums.AssetStatus)
	}
	if v, ok := updates["location"]; ok {
		audit.Location = v.(string)
	}
	return nil
}

func (f *fakeAuditRepo) Count(context.Context) (int64, error) {
	return int64(len(f.audits)), nil
}

func (f *fakeAuditRepo) DeleteAll(context.Context) error {
	f.audits = map[uuid.UUID]*models.AssetAudit{}
	f.wiped = true
	return nil
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
		return asset, nil
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
	return nil
}

func (f *fakeAssetRepo) MarkAudited(context.Context, uuid.UUID, time.Time) error { return nil }

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

type archiveFixture struct {
	svc     Service
	repo    *fakeArchiveRepo
	audits  *fakeAuditRepo
	assets  *fakeAssetRepo
	outbox  *fakeOutbox
	now     time.Time
	audit   *models.AssetAudit
	assetID uuid.UUID
}

func newArchiveFixture(t *testing.T) *archiveFixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeArchiveRepo{}
	auditRepo := newFakeAuditRepo()
	assetRepo := newFakeAssetRepo()
	ob := &fakeOutbox{}

	assetID := uuid.New()
	assetRepo.assets[assetID] = &models.Asset{
		ID:       assetID,
		Tag:      "AT-0001",
		Status:   enums.AssetStatusActive,
		Location: "Lab A",
	}

	audit := &models.AssetAudit{
		ID:             uuid.New(),
		AuditDate:      now.Add(-time.Hour),
		AssetID:        &assetID,
		AssetTag:       "AT-0001",
		AssetType:      enums.AssetTypeLaptop,
		Status:         enums.AssetStatusActive,
		Location:       "Lab A",
		AuditedBy:      "Auditor One",
		AuditSessionID: "sweep-1",
		CreatedAt:      now.Add(-time.Hour),
	}
	auditRepo.audits[audit.ID] = audit

	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Audits: auditRepo,
		Assets: assetRepo,
		Tx:     fakeTxRunner{},
		Outbox: ob,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)

	return &archiveFixture{
		svc:     svc,
		repo:    repo,
		audits:  auditRepo,
		assets:  assetRepo,
		outbox:  ob,
		now:     now,
		audit:   audit,
		assetID: assetID,
	}
}

func strPtr(v string) *string { return &v }

func TestUpdateAuditRecordMirrorsAsset(t *testing.T) {
	f := newArchiveFixture(t)
	retired := enums.AssetStatusRetired

	updated, err := f.svc.UpdateAuditRecord(context.Background(), UpdateInput{
		AuditID:   f.audit.ID,
		Status:    &retired,
		Location:  strPtr("Storage B"),
		UpdatedBy: "Admin User",
	})
	require.NoError(t, err)

	require.Equal(t, enums.AssetStatusRetired, updated.Status)
	require.Equal(t, "Storage B", updated.Location)

	assetUpdates := f.assets.updates[f.assetID]
	require.Equal(t, retired, assetUpdates["status"])
	require.Equal(t, "Storage B", assetUpdates["location"])
}

func TestUpdateAuditRecordRejectsDeletedRow(t *testing.T) {
	f := newArchiveFixture(t)
	f.audit.IsDeleted = true

	_, err := f.svc.UpdateAuditRecord(context.Background(), UpdateInput{
		AuditID:   f.audit.ID,
		Notes:     strPtr("edit"),
		UpdatedBy: "Admin User",
	})

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAuditRecordArchivesThenSoftDeletes(t *testing.T) {
	f := newArchiveFixture(t)
	reason := "entered against wrong asset"

	err := f.svc.DeleteAuditRecord(context.Background(), f.audit.ID, "Admin User", &reason)
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	rec := f.repo.records[0]
	require.Equal(t, f.audit.ID, rec.OriginalAuditID)
	require.Equal(t, "AT-0001", rec.AssetTag)
	require.Equal(t, "Admin User", rec.DeletedBy)
	require.Equal(t, &reason, rec.DeletionReason)
	require.Equal(t, f.now, rec.DeletedAt)

	require.True(t, f.audits.audits[f.audit.ID].IsDeleted)

	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventAuditDeleted, f.outbox.events[0].EventType)
}

func TestDeleteAuditRecordIsIdempotentlyGuarded(t *testing.T) {
	f := newArchiveFixture(t)

	require.NoError(t, f.svc.DeleteAuditRecord(context.Background(), f.audit.ID, "Admin User", nil))

	// A second delete sees the soft-deleted row as gone.
	err := f.svc.DeleteAuditRecord(context.Background(), f.audit.ID, "Admin User", nil)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Len(t, f.repo.records, 1)
}

func TestDeleteAuditRecordRequiresActor(t *testing.T) {
	f := newArchiveFixture(t)

	err := f.svc.DeleteAuditRecord(context.Background(), f.audit.ID, "  ", nil)

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListDeletedHistoryFiltersBySession(t *testing.T) {
	f := newArchiveFixture(t)
	f.repo.records = []models.AssetAuditDeleteHistory{
		{AuditSessionID: "sweep-1", AssetTag: "AT-0001"},
		{AuditSessionID: "sweep-2", AssetTag: "AT-0002"},
	}

	all, err := f.svc.ListDeletedHistory(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := f.svc.ListDeletedHistory(context.Background(), "sweep-2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "AT-0002", scoped[0].AssetTag)
}

func TestListDeletedHistoryEmptyArchive(t *testing.T) {
	f := newArchiveFixture(t)

	records, err := f.svc.ListDeletedHistory(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestClearAllWipesBothTables(t *testing.T) {
	f := newArchiveFixture(t)
	f.repo.records = []models.AssetAuditDeleteHistory{{AssetTag: "AT-0002"}}

	result, err := f.svc.ClearAll(context.Background(), "Admin User")
	require.NoError(t, err)

	require.EqualValues(t, 1, result.AuditsRemoved)
	require.EqualValues(t, 1, result.ArchiveRemoved)
	require.True(t, f.audits.wiped)
	require.True(t, f.repo.wiped)

	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventAuditPurged, f.outbox.events[0].EventType)
}

func TestClearAllRequiresActor(t *testing.T) {
	f := newArchiveFixture(t)

	_, err := f.svc.ClearAll(context.Background(), "")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
