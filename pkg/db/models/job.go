package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// Job is one unit of imaging or maintenance work against exactly one asset.
type Job struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID      uuid.UUID         `gorm:"column:asset_id;type:uuid;not null;index"`
	TechnicianID *uuid.UUID        `gorm:"column:technician_id;type:uuid;index"`
	JobType      enums.JobType     `gorm:"column:job_type;type:job_type_enum;not null"`
	Status       enums.JobStatus   `gorm:"column:status;type:job_status_enum;not null;default:'pending'"`
	Priority     enums.JobPriority `gorm:"column:priority;type:job_priority_enum;not null;default:'normal'"`
	ScheduledAt  *time.Time        `gorm:"column:scheduled_at"`
	DueDate      *time.Time        `gorm:"column:due_date"`
	StartedAt    *time.Time        `gorm:"column:started_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
	Notes        *string           `gorm:"column:notes"`
	Asset        *Asset            `gorm:"foreignKey:AssetID"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOverdue reports whether the job's due date has passed without the job
// reaching a terminal state.
func (j Job) IsOverdue(now time.Time) bool {
	if j.DueDate == nil {
		return false
	}
	if j.Status.IsTerminal() {
		return false
	}
	return j.DueDate.Before(now)
}
