package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// SchemaVersion is the current envelope version for every payload in this
// package. Emitters stamp it on the envelope and the publisher picks the
// matching decoder by it.
const SchemaVersion = 1

// JobEvent is the payload carried by every job lifecycle event.
type JobEvent struct {
	JobID        uuid.UUID         `json:"job_id"`
	AssetID      uuid.UUID         `json:"asset_id"`
	TechnicianID *uuid.UUID        `json:"technician_id,omitempty"`
	JobType      enums.JobType     `json:"job_type"`
	Status       enums.JobStatus   `json:"status"`
	Priority     enums.JobPriority `json:"priority"`
}

// AuditRecordedEvent is emitted when a scan produces an audit record.
type AuditRecordedEvent struct {
	AuditID        uuid.UUID  `json:"audit_id"`
	AssetID        *uuid.UUID `json:"asset_id,omitempty"`
	AssetTag       string     `json:"asset_tag"`
	AuditSessionID *string    `json:"audit_session_id,omitempty"`
	IsNewAsset     bool       `json:"is_new_asset"`
	AuditDate      time.Time  `json:"audit_date"`
}

// AuditDeletedEvent is emitted when an audit record is soft deleted.
type AuditDeletedEvent struct {
	AuditID        uuid.UUID `json:"audit_id"`
	AssetTag       string    `json:"asset_tag"`
	DeletedBy      string    `json:"deleted_by"`
	DeletionReason *string   `json:"deletion_reason,omitempty"`
}

// AuditPurgedEvent is emitted once per hard wipe of the audit archive.
type AuditPurgedEvent struct {
	ClearedBy    string `json:"cleared_by"`
	AuditCount   int64  `json:"audit_count"`
	HistoryCount int64  `json:"history_count"`
}
