package assets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

type fakeRepo struct {
	assets  map[uuid.UUID]*models.Asset
	byTag   map[string]uuid.UUID
	updates map[uuid.UUID]map[string]any
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assets:  map[uuid.UUID]*models.Asset{},
		byTag:   map[string]uuid.UUID{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, asset *models.Asset) (*models.Asset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	f.assets[asset.ID] = asset
	f.byTag[asset.Tag] = asset.ID
	return asset, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Asset, error) {
	if asset, ok := f.assets[id]; ok {
		copied := *asset
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindByCode(context.Context, string) (*models.Asset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindByTag(_ context.Context, tag string) (*models.Asset, error) {
	if id, ok := f.byTag[tag]; ok {
		copied := *f.assets[id]
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) List(context.Context, pagination.Params, ListFilters) (*AssetList, error) {
	var all []models.Asset
	for _, asset := range f.assets {
		all = append(all, *asset)
	}
	return &AssetList{Assets: all}, nil
}

func (f *fakeRepo) ListAll(context.Context) ([]models.Asset, error) { return nil, nil }

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates[id] = updates
	return nil
}

func (f *fakeRepo) MarkAudited(context.Context, uuid.UUID, time.Time) error { return nil }

type loggedChange struct {
	field string
	actor string
}

type fakeHistory struct {
	changes []loggedChange
}

func (f *fakeHistory) LogStatusChange(_ context.Context, _ *gorm.DB, _ uuid.UUID, _, _ enums.AssetStatus, actor string) error {
	f.changes = append(f.changes, loggedChange{field: "status", actor: actor})
	return nil
}

func (f *fakeHistory) LogFieldChange(_ context.Context, _ *gorm.DB, _ uuid.UUID, field string, _, _ *string, actor string) error {
	f.changes = append(f.changes, loggedChange{field: field, actor: actor})
	return nil
}

func (f *fakeHistory) LogAssignmentChange(_ context.Context, _ *gorm.DB, _ uuid.UUID, field string, _, _ *uuid.UUID, actor string) error {
	f.changes = append(f.changes, loggedChange{field: field, actor: actor})
	return nil
}

func (f *fakeHistory) ListByAsset(context.Context, uuid.UUID) ([]models.AssetHistory, error) {
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T) (Service, *fakeRepo, *fakeHistory) {
	t.Helper()
	repo := newFakeRepo()
	hist := &fakeHistory{}
	svc, err := NewService(repo, fakeTxRunner{}, hist)
	require.NoError(t, err)
	return svc, repo, hist
}

func TestRegisterAppliesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	asset, err := svc.Register(context.Background(), RegisterInput{Tag: "  AT-0001  "})
	require.NoError(t, err)

	require.Equal(t, "AT-0001", asset.Tag)
	require.Equal(t, enums.AssetTypeOther, asset.AssetType)
	require.Equal(t, enums.AssetStatusInStock, asset.Status)
}

func TestRegisterRequiresTag(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Tag: "   "})

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRegisterRejectsDuplicateTag(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Tag: "AT-0001"})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRegisterRejectsInvalidEnums(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001", AssetType: "toaster"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(context.Background(), RegisterInput{Tag: "AT-0001", Status: "exploded"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetUnknownAsset(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateLogsEachChangedField(t *testing.T) {
	svc, repo, hist := newTestService(t)
	asset, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001", Location: "Storage A"})
	require.NoError(t, err)

	active := enums.AssetStatusActive
	updated, err := svc.Update(context.Background(), asset.ID, UpdateInput{
		Status:   &active,
		Location: strPtr("Lab B"),
	}, "Admin User")
	require.NoError(t, err)

	require.Equal(t, enums.AssetStatusActive, updated.Status)
	require.Equal(t, "Lab B", updated.Location)

	require.Len(t, hist.changes, 2)
	require.Equal(t, "status", hist.changes[0].field)
	require.Equal(t, "location", hist.changes[1].field)
	require.Equal(t, "Admin User", hist.changes[0].actor)

	stored := repo.updates[asset.ID]
	require.Equal(t, active, stored["status"])
	require.Equal(t, "Lab B", stored["location"])
}

func TestUpdateSkipsUnchangedFields(t *testing.T) {
	svc, repo, hist := newTestService(t)
	asset, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001", Location: "Storage A"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), asset.ID, UpdateInput{
		Location: strPtr("Storage A"),
	}, "Admin User")
	require.NoError(t, err)

	require.Empty(t, hist.changes)
	require.Empty(t, repo.updates[asset.ID])
}

func TestUpdateClearAssignmentWinsOverAssign(t *testing.T) {
	svc, repo, hist := newTestService(t)
	asset, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001"})
	require.NoError(t, err)

	employee := uuid.New()
	updated, err := svc.Update(context.Background(), asset.ID, UpdateInput{
		AssignedEmployeeID: &employee,
		ClearAssignment:    true,
	}, "Admin User")
	require.NoError(t, err)

	require.Nil(t, updated.AssignedEmployeeID)
	require.Nil(t, updated.AssignedDepartmentID)
	require.Len(t, hist.changes, 1)
	require.Equal(t, "assigned_employee_id", hist.changes[0].field)

	stored := repo.updates[asset.ID]
	require.Contains(t, stored, "assigned_employee_id")
	require.Nil(t, stored["assigned_employee_id"])
}

func TestUpdateAssignsEmployee(t *testing.T) {
	svc, _, hist := newTestService(t)
	asset, err := svc.Register(context.Background(), RegisterInput{Tag: "AT-0001"})
	require.NoError(t, err)

	employee := uuid.New()
	updated, err := svc.Update(context.Background(), asset.ID, UpdateInput{
		AssignedEmployeeID: &employee,
	}, "Admin User")
	require.NoError(t, err)

	require.Equal(t, &employee, updated.AssignedEmployeeID)
	require.Len(t, hist.changes, 1)
}

func TestUpdateUnknownAsset(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{Notes: strPtr("x")}, "Admin User")

	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func strPtr(v string) *string { return &v }
