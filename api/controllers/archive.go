package controllers

import (
	"net/http"
	"strings"

	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/api/validators"
	"github.com/fieldops-io/assettrack-backend/internal/archive"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
)

type auditRecordUpdateRequest struct {
	Status   *string `json:"status,omitempty"`
	Location *string `json:"location,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type auditRecordDeleteRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// AuditRecordUpdate edits a live audit record; status and location edits are
// mirrored onto the asset.
func AuditRecordUpdate(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "archive service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "auditId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auditRecordUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := archive.UpdateInput{
			AuditID:   id,
			Location:  body.Location,
			Notes:     body.Notes,
			UpdatedBy: actorFromContext(r),
		}
		if body.Status != nil {
			status, parseErr := enums.ParseAssetStatus(*body.Status)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			input.Status = &status
		}

		audit, err := svc.UpdateAuditRecord(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, audit)
	}
}

// AuditRecordDelete soft-deletes a record after copying it to the archive.
func AuditRecordDelete(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "archive service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "auditId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auditRecordDeleteRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAuditRecord(r.Context(), id, actorFromContext(r), body.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AuditDeletedHistory lists the append-only archive of deleted records.
func AuditDeletedHistory(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "archive service unavailable"))
			return
		}

		rows, err := svc.ListDeletedHistory(r.Context(), strings.TrimSpace(r.URL.Query().Get("session")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// AuditClearAll wipes all audit rows and the delete archive. Admin only;
// routed behind RequireRole.
func AuditClearAll(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "archive service unavailable"))
			return
		}

		result, err := svc.ClearAll(r.Context(), actorFromContext(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
