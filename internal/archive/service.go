package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/audits"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UpdateInput edits a live audit record.
type UpdateInput struct {
	AuditID   uuid.UUID
	Status    *enums.AssetStatus
	Location  *string
	Notes     *string
	UpdatedBy string
}

// PurgeResult reports what the global wipe removed.
type PurgeResult struct {
	AuditsRemoved  int64 `json:"audits_removed"`
	ArchiveRemoved int64 `json:"archive_removed"`
}

// Service owns the audit archive: edits, soft deletes with an archival copy,
// and the global hard wipe.
type Service interface {
	UpdateAuditRecord(ctx context.Context, input UpdateInput) (*models.AssetAudit, error)
	DeleteAuditRecord(ctx context.Context, auditID uuid.UUID, deletedBy string, reason *string) error
	ListDeletedHistory(ctx context.Context, sessionID string) ([]models.AssetAuditDeleteHistory, error)
	ClearAll(ctx context.Context, clearedBy string) (*PurgeResult, error)
}

type service struct {
	repo   Repository
	audits audits.Repository
	assets assets.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// ServiceParams collects the archive dependencies.
type ServiceParams struct {
	Repo   Repository
	Audits audits.Repository
	Assets assets.Repository
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService builds the archive service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("archive repository required")
	}
	if params.Audits == nil {
		return nil, fmt.Errorf("audits repository required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("assets repository required")
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
		repo:   params.Repo,
		audits: params.Audits,
		assets: params.Assets,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// UpdateAuditRecord edits a live audit record and mirrors status/location onto
// the linked asset so the two cannot drift apart.
func (s *service) UpdateAuditRecord(ctx context.Context, input UpdateInput) (*models.AssetAudit, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid asset status")
	}

	var updated *models.AssetAudit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		auditRepo := s.audits.WithTx(tx)
		audit, err := s.loadLive(ctx, auditRepo, input.AuditID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Status != nil && *input.Status != audit.Status {
			updates["status"] = *input.Status
			audit.Status = *input.Status
		}
		if input.Location != nil && *input.Location != audit.Location {
			updates["location"] = *input.Location
			audit.Location = *input.Location
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
			audit.Notes = input.Notes
		}
		if len(updates) > 0 {
			if err := auditRepo.Update(ctx, audit.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update audit")
			}
		}

		if audit.AssetID != nil {
			assetUpdates := map[string]any{}
			if input.Status != nil {
				assetUpdates["status"] = *input.Status
			}
			if input.Location != nil {
				assetUpdates["location"] = *input.Location
			}
			if len(assetUpdates) > 0 {
				if err := s.assets.WithTx(tx).Update(ctx, *audit.AssetID, assetUpdates); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror audit edit onto asset")
				}
			}
		}

		updated = audit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAuditRecord copies the audit into the archive, then flips the soft
// delete flag on the live row. The live row is never physically removed here.
func (s *service) DeleteAuditRecord(ctx context.Context, auditID uuid.UUID, deletedBy string, reason *string) error {
	deletedBy = strings.TrimSpace(deletedBy)
	if deletedBy == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "deleted by required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		auditRepo := s.audits.WithTx(tx)
		audit, err := s.loadLive(ctx, auditRepo, auditID)
		if err != nil {
			return err
		}

		now := s.now()
		record := &models.AssetAuditDeleteHistory{
			OriginalAuditID:   audit.ID,
			AuditDate:         audit.AuditDate,
			AssetID:           audit.AssetID,
			AssetTag:          audit.AssetTag,
			AssetType:         audit.AssetType,
			Status:            audit.Status,
			Location:          audit.Location,
			AuditedBy:         audit.AuditedBy,
			Notes:             audit.Notes,
			IsNewAsset:        audit.IsNewAsset,
			PreviousStatus:    audit.PreviousStatus,
			PreviousLocation:  audit.PreviousLocation,
			AuditSessionID:    audit.AuditSessionID,
			DeletedBy:         deletedBy,
			DeletionReason:    reason,
			DeletedAt:         now,
			OriginalCreatedAt: audit.CreatedAt,
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive audit")
		}

		updates := map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"deleted_by": deletedBy,
		}
		if err := auditRepo.Update(ctx, audit.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "soft delete audit")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAuditDeleted,
			AggregateType: enums.AggregateAssetAudit,
			AggregateID:   audit.ID,
			Version:       payloads.SchemaVersion,
			Actor:         &outbox.ActorRef{DisplayName: deletedBy},
			Data: payloads.AuditDeletedEvent{
				AuditID:        audit.ID,
				AssetTag:       audit.AssetTag,
				DeletedBy:      deletedBy,
				DeletionReason: reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// ListDeletedHistory never errors on an empty archive; it returns an empty
// slice.
func (s *service) ListDeletedHistory(ctx context.Context, sessionID string) ([]models.AssetAuditDeleteHistory, error) {
	records, err := s.repo.List(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deleted history")
	}
	if records == nil {
		records = []models.AssetAuditDeleteHistory{}
	}
	return records, nil
}

// ClearAll irreversibly wipes both the live audit table and the archive.
// Callers gate this behind the strongest authorization available.
func (s *service) ClearAll(ctx context.Context, clearedBy string) (*PurgeResult, error) {
	clearedBy = strings.TrimSpace(clearedBy)
	if clearedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cleared by required")
	}

	result := &PurgeResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		auditRepo := s.audits.WithTx(tx)
		archiveRepo := s.repo.WithTx(tx)

		auditCount, err := auditRepo.Count(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count audits")
		}
		archiveCount, err := archiveRepo.Count(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count archive")
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"cleared_by":    clearedBy,
				"audit_count":   auditCount,
				"archive_count": archiveCount,
			})
			s.logg.Warn(logCtx, "purging audit history")
		}

		if err := auditRepo.DeleteAll(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wipe audits")
		}
		if err := archiveRepo.DeleteAll(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wipe archive")
		}

		result.AuditsRemoved = auditCount
		result.ArchiveRemoved = archiveCount

		event := outbox.DomainEvent{
			EventType:     enums.EventAuditPurged,
			AggregateType: enums.AggregateAssetAudit,
			AggregateID:   uuid.New(),
			Version:       payloads.SchemaVersion,
			Actor:         &outbox.ActorRef{DisplayName: clearedBy},
			Data: payloads.AuditPurgedEvent{
				ClearedBy:    clearedBy,
				AuditCount:   auditCount,
				HistoryCount: archiveCount,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cleared_by":      clearedBy,
			"audits_removed":  result.AuditsRemoved,
			"archive_removed": result.ArchiveRemoved,
		})
		s.logg.Warn(logCtx, "audit history purged")
	}
	return result, nil
}

func (s *service) loadLive(ctx context.Context, repo audits.Repository, auditID uuid.UUID) (*models.AssetAudit, error) {
	audit, err := repo.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "audit record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit")
	}
	if audit.IsDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "audit record not found")
	}
	return audit, nil
}
