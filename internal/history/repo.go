package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
)

// Repository persists append-only asset history entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.AssetHistory) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.AssetHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a history repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.AssetHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.AssetHistory, error) {
	var entries []models.AssetHistory
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
