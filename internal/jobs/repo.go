package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// Repository persists jobs and answers the queue's read queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindActiveByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]models.Job, error)
	ListByStatus(ctx context.Context, status enums.JobStatus) ([]models.Job, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Job, error)
	ListOpen(ctx context.Context) ([]models.Job, error)
	Search(ctx context.Context, term string) ([]models.Job, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a jobs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindActiveByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Where("status IN ?", enums.ActiveJobStatuses).
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
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Job{}).Error
}

func (r *repository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.JobStatus) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListOverdue(ctx context.Context, now time.Time) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Where("status NOT IN ?", []enums.JobStatus{
			enums.JobStatusCompleted,
			enums.JobStatusFailed,
			enums.JobStatusCancelled,
		}).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOpen returns every non-terminal job; queue ordering happens in memory
// via the comparator so the sort stays referentially transparent.
func (r *repository) ListOpen(ctx context.Context) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Preload("Asset").
		Where("status IN ?", enums.ActiveJobStatuses).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Search(ctx context.Context, term string) ([]models.Job, error) {
	pattern := "%" + term + "%"
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN assets ON assets.id = jobs.asset_id").
		Where("jobs.notes ILIKE ? OR assets.tag ILIKE ?", pattern, pattern).
		Order("jobs.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
