package archive

import (
	"context"

	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.AssetAuditDeleteHistory) (*models.AssetAuditDeleteHistory, error)
	List(ctx context.Context, sessionID string) ([]models.AssetAuditDeleteHistory, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.AssetAuditDeleteHistory) (*models.AssetAuditDeleteHistory, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) List(ctx context.Context, sessionID string) ([]models.AssetAuditDeleteHistory, error) {
	query := r.db.WithContext(ctx).Model(&models.AssetAuditDeleteHistory{})
	if sessionID != "" {
		query = query.Where("audit_session_id = ?", sessionID)
	}
	var records []models.AssetAuditDeleteHistory
	if err := query.Order("deleted_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AssetAuditDeleteHistory{}).
		Count(&count).Error
	return count, err
}

// DeleteAll wipes the archive. Only the global purge calls this.
func (r *repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AssetAuditDeleteHistory{}).Error
}
