package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterInput carries the fields needed to add an asset to the registry.
type RegisterInput struct {
	Tag          string
	SerialNumber *string
	PCID         *string
	AssetType    enums.AssetType
	Status       enums.AssetStatus
	Location     string
	Model        *string
	Notes        *string
}

// UpdateInput is a field-level patch; nil pointers leave fields untouched.
type UpdateInput struct {
	Location             *string
	Status               *enums.AssetStatus
	AssetType            *enums.AssetType
	Model                *string
	Notes                *string
	AssignedEmployeeID   *uuid.UUID
	AssignedDepartmentID *uuid.UUID
	ClearAssignment      bool
}

// Service owns the durable asset registry.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AssetList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor string) (*models.Asset, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	history history.Service
}

// NewService builds the asset registry service.
func NewService(repo Repository, tx txRunner, historySvc history.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assets repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if historySvc == nil {
		return nil, fmt.Errorf("history service required")
	}
	return &service{repo: repo, tx: tx, history: historySvc}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Asset, error) {
	tag := strings.TrimSpace(input.Tag)
	if tag == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset tag required")
	}
	if input.AssetType == "" {
		input.AssetType = enums.AssetTypeOther
	}
	if !input.AssetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid asset type")
	}
	if input.Status == "" {
		input.Status = enums.AssetStatusInStock
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid asset status")
	}

	existing, err := s.repo.FindByTag(ctx, tag)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup asset tag")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "asset tag already registered")
	}

	asset := &models.Asset{
		Tag:          tag,
		SerialNumber: input.SerialNumber,
		PCID:         input.PCID,
		AssetType:    input.AssetType,
		Status:       input.Status,
		Location:     strings.TrimSpace(input.Location),
		Model:        input.Model,
		Notes:        input.Notes,
	}
	created, err := s.repo.Create(ctx, asset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create asset")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	return asset, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AssetList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assets")
	}
	return list, nil
}

// Update applies a field-level patch. Every changed field is diffed against
// the stored row and reported to the history log as an (old, new) tuple.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor string) (*models.Asset, error) {
	var updated *models.Asset
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}

		updates := map[string]any{}

		if input.Status != nil && *input.Status != asset.Status {
			if !input.Status.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid asset status")
			}
			if err := s.history.LogStatusChange(ctx, tx, asset.ID, asset.Status, *input.Status, actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log status change")
			}
			updates["status"] = *input.Status
			asset.Status = *input.Status
		}

		if input.Location != nil && *input.Location != asset.Location {
			old := asset.Location
			if err := s.history.LogFieldChange(ctx, tx, asset.ID, "location", &old, input.Location, actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log location change")
			}
			updates["location"] = *input.Location
			asset.Location = *input.Location
		}

		if input.AssetType != nil && *input.AssetType != asset.AssetType {
			if !input.AssetType.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid asset type")
			}
			old := asset.AssetType.String()
			newVal := input.AssetType.String()
			if err := s.history.LogFieldChange(ctx, tx, asset.ID, "asset_type", &old, &newVal, actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log type change")
			}
			updates["asset_type"] = *input.AssetType
			asset.AssetType = *input.AssetType
		}

		if input.Model != nil {
			if err := s.history.LogFieldChange(ctx, tx, asset.ID, "model", asset.Model, input.Model, actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log model change")
			}
			updates["model"] = *input.Model
			asset.Model = input.Model
		}

		if input.Notes != nil {
			updates["notes"] = *input.Notes
			asset.Notes = input.Notes
		}

		if input.ClearAssignment {
			if err := s.history.LogAssignmentChange(ctx, tx, asset.ID, "assigned_employee_id", asset.AssignedEmployeeID, nil, actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log assignment change")
			}
			updates["assigned_employee_id"] = nil
			updates["assigned_department_id"] = nil
			asset.AssignedEmployeeID = nil
			asset.AssignedDepartmentID = nil
		} else {
			if input.AssignedEmployeeID != nil {
				if err := s.history.LogAssignmentChange(ctx, tx, asset.ID, "assigned_employee_id", asset.AssignedEmployeeID, input.AssignedEmployeeID, actor); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log assignment change")
				}
				updates["assigned_employee_id"] = *input.AssignedEmployeeID
				asset.AssignedEmployeeID = input.AssignedEmployeeID
			}
			if input.AssignedDepartmentID != nil {
				if err := s.history.LogAssignmentChange(ctx, tx, asset.ID, "assigned_department_id", asset.AssignedDepartmentID, input.AssignedDepartmentID, actor); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log assignment change")
				}
				updates["assigned_department_id"] = *input.AssignedDepartmentID
				asset.AssignedDepartmentID = input.AssignedDepartmentID
			}
		}

		if len(updates) > 0 {
			if err := repo.Update(ctx, asset.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update asset")
			}
		}

		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
