package assets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

// ListFilters narrows the registry listing.
type ListFilters struct {
	Status    *enums.AssetStatus
	AssetType *enums.AssetType
	Location  *string
}

// AssetList is one page of registry rows.
type AssetList struct {
	Assets     []models.Asset
	NextCursor string
}

// Repository is the Asset Registry persistence interface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	FindByCode(ctx context.Context, code string) (*models.Asset, error)
	FindByTag(ctx context.Context, tag string) (*models.Asset, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AssetList, error)
	ListAll(ctx context.Context) ([]models.Asset, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MarkAudited(ctx context.Context, id uuid.UUID, auditedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an asset repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByCode resolves a scanned identifier against tag, serial number and
// pc id in a single lookup.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Where("tag = ? OR serial_number = ? OR pc_id = ?", code, code, code).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *repository) FindByTag(ctx context.Context, tag string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Where("tag = ?", tag).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AssetList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Asset{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssetType != nil {
		query = query.Where("asset_type = ?", *filters.AssetType)
	}
	if filters.Location != nil {
		query = query.Where("location = ?", *filters.Location)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) > (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Asset
	err = query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &AssetList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	list.Assets = rows
	return list, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Asset, error) {
	var rows []models.Asset
	err := r.db.WithContext(ctx).
		Order("tag ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkAudited stamps the audit bookkeeping fields. It runs even when a scan
// changed nothing: audited means verified this sweep, not changed.
func (r *repository) MarkAudited(ctx context.Context, id uuid.UUID, auditedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_audited":      true,
			"last_audit_date": auditedAt,
		}).Error
}
