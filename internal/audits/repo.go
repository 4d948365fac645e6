package audits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
)

// ListFilters narrows audit listings. Zero values mean no filter.
type ListFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	SessionID string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, audit *models.AssetAudit) (*models.AssetAudit, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AssetAudit, error)
	FindLatestInSession(ctx context.Context, sessionID, assetTag string) (*models.AssetAudit, error)
	List(ctx context.Context, filters ListFilters) ([]models.AssetAudit, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AssetAudit, error)
	SessionTags(ctx context.Context, sessionID string) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
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

func (r *repository) Create(ctx context.Context, audit *models.AssetAudit) (*models.AssetAudit, error) {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return nil, err
	}
	return audit, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AssetAudit, error) {
	var audit models.AssetAudit
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&audit).Error
	if err != nil {
		return nil, err
	}
	return &audit, nil
}

// FindLatestInSession returns the most recent non-deleted audit for the tag
// within the session, or gorm.ErrRecordNotFound.
func (r *repository) FindLatestInSession(ctx context.Context, sessionID, assetTag string) (*models.AssetAudit, error) {
	var audit models.AssetAudit
	err := r.db.WithContext(ctx).
		Where("audit_session_id = ? AND asset_tag = ? AND is_deleted = ?", sessionID, assetTag, false).
		Order("audit_date DESC").
		First(&audit).Error
	if err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.AssetAudit, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AssetAudit{}).
		Where("is_deleted = ?", false)
	if filters.StartDate != nil {
		query = query.Where("audit_date >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("audit_date <= ?", *filters.EndDate)
	}
	if filters.SessionID != "" {
		query = query.Where("audit_session_id = ?", filters.SessionID)
	}

	var audits []models.AssetAudit
	if err := query.Order("audit_date DESC").Find(&audits).Error; err != nil {
		return nil, err
	}
	return audits, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]models.AssetAudit, error) {
	var audits []models.AssetAudit
	err := r.db.WithContext(ctx).
		Where("audit_session_id = ? AND is_deleted = ?", sessionID, false).
		Order("audit_date DESC").
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}

// SessionTags returns the distinct tags scanned in a session.
func (r *repository) SessionTags(ctx context.Context, sessionID string) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&models.AssetAudit{}).
		Where("audit_session_id = ? AND is_deleted = ?", sessionID, false).
		Distinct().
		Pluck("asset_tag", &tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.AssetAudit{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AssetAudit{}).
		Count(&count).Error
	return count, err
}

// DeleteAll wipes the table. Only the archive's hard purge calls this.
func (r *repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AssetAudit{}).Error
}
