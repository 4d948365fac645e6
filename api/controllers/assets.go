package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/api/middleware"
	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/api/validators"
	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/pagination"
)

type assetCreateRequest struct {
	Tag          string  `json:"tag" validate:"required,min=1,max=120"`
	SerialNumber *string `json:"serial_number,omitempty"`
	PCID         *string `json:"pc_id,omitempty"`
	AssetType    string  `json:"asset_type" validate:"required"`
	Status       string  `json:"status,omitempty"`
	Location     string  `json:"location" validate:"required,min=1"`
	Model        *string `json:"model,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type assetUpdateRequest struct {
	Location             *string `json:"location,omitempty"`
	Status               *string `json:"status,omitempty"`
	AssetType            *string `json:"asset_type,omitempty"`
	Model                *string `json:"model,omitempty"`
	Notes                *string `json:"notes,omitempty"`
	AssignedEmployeeID   *string `json:"assigned_employee_id,omitempty"`
	AssignedDepartmentID *string `json:"assigned_department_id,omitempty"`
	ClearAssignment      bool    `json:"clear_assignment,omitempty"`
}

// AssetCreate registers a new asset.
func AssetCreate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset service unavailable"))
			return
		}

		var body assetCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetType, err := enums.ParseAssetType(body.AssetType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset type"))
			return
		}

		status := enums.AssetStatusInStock
		if strings.TrimSpace(body.Status) != "" {
			status, err = enums.ParseAssetStatus(body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset status"))
				return
			}
		}

		asset, err := svc.Register(r.Context(), assets.RegisterInput{
			Tag:          validators.SanitizeString(body.Tag, 120),
			SerialNumber: body.SerialNumber,
			PCID:         body.PCID,
			AssetType:    assetType,
			Status:       status,
			Location:     validators.SanitizeString(body.Location, 255),
			Model:        body.Model,
			Notes:        body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

// AssetList pages through the registry with optional filters.
func AssetList(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := assets.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseAssetStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			assetType, parseErr := enums.ParseAssetType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid type filter"))
				return
			}
			filters.AssetType = &assetType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("location")); raw != "" {
			filters.Location = &raw
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// AssetDetail returns one asset by ID.
func AssetDetail(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// AssetUpdate applies a field-level patch and records each change in history.
func AssetUpdate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assetUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := assets.UpdateInput{
			Location:        body.Location,
			Model:           body.Model,
			Notes:           body.Notes,
			ClearAssignment: body.ClearAssignment,
		}
		if body.Status != nil {
			status, parseErr := enums.ParseAssetStatus(*body.Status)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid asset status"))
				return
			}
			input.Status = &status
		}
		if body.AssetType != nil {
			assetType, parseErr := enums.ParseAssetType(*body.AssetType)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid asset type"))
				return
			}
			input.AssetType = &assetType
		}
		if body.AssignedEmployeeID != nil {
			employeeID, parseErr := uuid.Parse(*body.AssignedEmployeeID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid employee id"))
				return
			}
			input.AssignedEmployeeID = &employeeID
		}
		if body.AssignedDepartmentID != nil {
			departmentID, parseErr := uuid.Parse(*body.AssignedDepartmentID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid department id"))
				return
			}
			input.AssignedDepartmentID = &departmentID
		}

		asset, err := svc.Update(r.Context(), id, input, actorFromContext(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// AssetHistory lists the append-only change log for one asset.
func AssetHistory(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByAsset(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

func parsePathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}

// actorFromContext prefers the display name from the token, falling back to
// the user ID so history rows always carry an actor.
func actorFromContext(r *http.Request) string {
	if name := middleware.DisplayNameFromContext(r.Context()); name != "" {
		return name
	}
	return middleware.UserIDFromContext(r.Context())
}
