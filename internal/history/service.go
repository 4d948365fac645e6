package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// Service appends change entries to the per-asset history log. Mutating
// callers pass their open transaction so the history write commits or rolls
// back together with the change it records.
type Service interface {
	LogStatusChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, oldStatus, newStatus enums.AssetStatus, actor string) error
	LogFieldChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, field string, oldValue, newValue *string, actor string) error
	LogAssignmentChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, field string, oldRef, newRef *uuid.UUID, actor string) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.AssetHistory, error)
}

type service struct {
	repo Repository
}

// NewService builds the history service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) LogStatusChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, oldStatus, newStatus enums.AssetStatus, actor string) error {
	oldVal := oldStatus.String()
	newVal := newStatus.String()
	entry := &models.AssetHistory{
		AssetID:   assetID,
		Action:    enums.HistoryActionStatusChange,
		Field:     "status",
		OldValue:  &oldVal,
		NewValue:  &newVal,
		ChangedBy: actor,
	}
	return s.repo.WithTx(tx).Append(ctx, entry)
}

func (s *service) LogFieldChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, field string, oldValue, newValue *string, actor string) error {
	entry := &models.AssetHistory{
		AssetID:   assetID,
		Action:    enums.HistoryActionFieldChange,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: actor,
	}
	return s.repo.WithTx(tx).Append(ctx, entry)
}

func (s *service) LogAssignmentChange(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, field string, oldRef, newRef *uuid.UUID, actor string) error {
	entry := &models.AssetHistory{
		AssetID:   assetID,
		Action:    enums.HistoryActionAssignmentChange,
		Field:     field,
		OldValue:  uuidValue(oldRef),
		NewValue:  uuidValue(newRef),
		ChangedBy: actor,
	}
	return s.repo.WithTx(tx).Append(ctx, entry)
}

func (s *service) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]models.AssetHistory, error) {
	return s.repo.ListByAsset(ctx, assetID)
}

func uuidValue(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}
