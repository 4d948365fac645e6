package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/api/validators"
	"github.com/fieldops-io/assettrack-backend/internal/audits"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
)

type auditScanRequest struct {
	ScannedCode string  `json:"scanned_code" validate:"required,min=1"`
	Location    *string `json:"location,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	SessionID   *string `json:"session_id,omitempty"`
}

type auditStatusRequest struct {
	AssetID   string  `json:"asset_id" validate:"required,uuid4"`
	Status    string  `json:"status,omitempty"`
	Location  *string `json:"location,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

// AuditScan ingests one scanned identifier.
func AuditScan(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		var body auditScanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessScan(r.Context(), audits.ScanInput{
			ScannedCode: body.ScannedCode,
			AuditedBy:   actorFromContext(r),
			Location:    body.Location,
			Notes:       body.Notes,
			SessionID:   body.SessionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuditStatusUpdate is the manual correction path: unknown statuses are
// ignored rather than rejected.
func AuditStatusUpdate(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		var body auditStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := uuid.Parse(body.AssetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset id"))
			return
		}

		result, err := svc.UpdateAssetStatus(r.Context(), audits.StatusUpdateInput{
			AssetID:   assetID,
			Status:    body.Status,
			Location:  body.Location,
			AuditedBy: actorFromContext(r),
			Notes:     body.Notes,
			SessionID: body.SessionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuditList filters live audit records by date range and session.
func AuditList(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		filters := audits.ListFilters{
			SessionID: strings.TrimSpace(r.URL.Query().Get("session")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
			start, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid start date"))
				return
			}
			filters.StartDate = &start
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
			end, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid end date"))
				return
			}
			filters.EndDate = &end
		}

		rows, err := svc.ListAudits(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// AuditSession returns the live records for one audit session.
func AuditSession(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		rows, err := svc.ListBySession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// AuditStatistics summarizes audits, optionally scoped to one session.
func AuditStatistics(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		stats, err := svc.Statistics(r.Context(), strings.TrimSpace(r.URL.Query().Get("session")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// AuditAssets lists every asset with its audited flag for checklist views.
func AuditAssets(svc audits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		rows, err := svc.ListAssetsForAudit(r.Context(), strings.TrimSpace(r.URL.Query().Get("session")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
