package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/api/middleware"
	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/api/validators"
	"github.com/fieldops-io/assettrack-backend/internal/jobs"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
)

type jobCreateRequest struct {
	AssetID      string     `json:"asset_id" validate:"required,uuid4"`
	TechnicianID *string    `json:"technician_id,omitempty"`
	JobType      string     `json:"job_type" validate:"required"`
	Priority     string     `json:"priority,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

type jobUpdateRequest struct {
	TechnicianID *string    `json:"technician_id,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

type jobTransitionRequest struct {
	TechnicianID *string `json:"technician_id,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// JobCreate opens a job against an asset.
func JobCreate(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		var body jobCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := uuid.Parse(body.AssetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset id"))
			return
		}

		jobType, err := enums.ParseJobType(body.JobType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job type"))
			return
		}

		priority := enums.JobPriorityNormal
		if strings.TrimSpace(body.Priority) != "" {
			priority, err = enums.ParseJobPriority(body.Priority)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
				return
			}
		}

		input := jobs.CreateInput{
			AssetID:     assetID,
			JobType:     jobType,
			Priority:    priority,
			ScheduledAt: body.ScheduledAt,
			DueDate:     body.DueDate,
			Notes:       body.Notes,
			Actor:       actorFromContext(r),
		}
		if body.TechnicianID != nil {
			technicianID, parseErr := uuid.Parse(*body.TechnicianID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid technician id"))
				return
			}
			input.TechnicianID = &technicianID
		}

		job, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// JobDetail returns one job by ID.
func JobDetail(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

// JobStart moves a pending or scheduled job into progress.
func JobStart(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobTransitionRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		technicianID := uuid.Nil
		if body.TechnicianID != nil {
			technicianID, err = uuid.Parse(*body.TechnicianID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid technician id"))
				return
			}
		} else if parsed, parseErr := uuid.Parse(middleware.UserIDFromContext(r.Context())); parseErr == nil {
			technicianID = parsed
		}
		if technicianID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "technician id required"))
			return
		}

		job, err := svc.Start(r.Context(), id, technicianID, actorFromContext(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

// JobComplete finishes an in-progress job.
func JobComplete(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTerminator(svc, logg, func(r *http.Request, id uuid.UUID, notes *string) (any, error) {
		return svc.Complete(r.Context(), id, notes, actorFromContext(r))
	})
}

// JobFail marks a job failed from any non-terminal status.
func JobFail(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTerminator(svc, logg, func(r *http.Request, id uuid.UUID, notes *string) (any, error) {
		return svc.Fail(r.Context(), id, notes, actorFromContext(r))
	})
}

// JobCancel cancels a job from any non-terminal status.
func JobCancel(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTerminator(svc, logg, func(r *http.Request, id uuid.UUID, notes *string) (any, error) {
		return svc.Cancel(r.Context(), id, notes, actorFromContext(r))
	})
}

func jobTerminator(svc jobs.Service, logg *logger.Logger, apply func(*http.Request, uuid.UUID, *string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobTransitionRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := apply(r, id, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

// JobUpdate applies a generic field patch without transition enforcement.
func JobUpdate(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := jobs.UpdateInput{
			ScheduledAt: body.ScheduledAt,
			DueDate:     body.DueDate,
			Notes:       body.Notes,
			Actor:       actorFromContext(r),
		}
		if body.TechnicianID != nil {
			technicianID, parseErr := uuid.Parse(*body.TechnicianID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid technician id"))
				return
			}
			input.TechnicianID = &technicianID
		}
		if body.Status != nil {
			status, parseErr := enums.ParseJobStatus(*body.Status)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			input.Status = &status
		}
		if body.Priority != nil {
			priority, parseErr := enums.ParseJobPriority(*body.Priority)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid priority"))
				return
			}
			input.Priority = &priority
		}

		job, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

// JobDelete removes a job row entirely. Admin only; routed behind RequireRole.
func JobDelete(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		id, err := parsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// JobList filters by asset, technician, or status query parameters.
func JobList(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		query := r.URL.Query()
		switch {
		case strings.TrimSpace(query.Get("asset")) != "":
			assetID, err := uuid.Parse(strings.TrimSpace(query.Get("asset")))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset filter"))
				return
			}
			rows, err := svc.ListByAsset(r.Context(), assetID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
		case strings.TrimSpace(query.Get("technician")) != "":
			technicianID, err := uuid.Parse(strings.TrimSpace(query.Get("technician")))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid technician filter"))
				return
			}
			rows, err := svc.ListByTechnician(r.Context(), technicianID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
		case strings.TrimSpace(query.Get("status")) != "":
			status, err := enums.ParseJobStatus(strings.TrimSpace(query.Get("status")))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			rows, err := svc.ListByStatus(r.Context(), status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
		default:
			rows, err := svc.ListByPriority(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
		}
	}
}

// JobQueue returns open jobs in working order.
func JobQueue(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		rows, err := svc.ListByPriority(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// JobOverdue returns open jobs whose due date has passed.
func JobOverdue(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		rows, err := svc.ListOverdue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// JobSearch matches the term against job and asset fields.
func JobSearch(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		term := strings.TrimSpace(r.URL.Query().Get("q"))
		if term == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "search term required"))
			return
		}

		rows, err := svc.Search(r.Context(), validators.SanitizeString(term, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
