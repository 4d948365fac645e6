package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// AssetAuditDeleteHistory is the append-only archive copy written when an
// AssetAudit is soft-deleted. Rows are never updated or individually removed;
// only the global wipe touches this table.
type AssetAuditDeleteHistory struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OriginalAuditID   uuid.UUID         `gorm:"column:original_audit_id;type:uuid;not null;index"`
	AuditDate         time.Time         `gorm:"column:audit_date;not null"`
	AssetID           *uuid.UUID        `gorm:"column:asset_id;type:uuid"`
	AssetTag          string            `gorm:"column:asset_tag;type:text;not null"`
	AssetType         enums.AssetType   `gorm:"column:asset_type;type:asset_type_enum;not null;default:'other'"`
	Status            enums.AssetStatus `gorm:"column:status;type:asset_status_enum;not null"`
	Location          string            `gorm:"column:location;type:text;not null;default:''"`
	AuditedBy         string            `gorm:"column:audited_by;type:text;not null"`
	Notes             *string           `gorm:"column:notes"`
	IsNewAsset        bool              `gorm:"column:is_new_asset;not null;default:false"`
	PreviousStatus    *string           `gorm:"column:previous_status;type:text"`
	PreviousLocation  *string           `gorm:"column:previous_location;type:text"`
	AuditSessionID    string            `gorm:"column:audit_session_id;type:text;not null;index"`
	DeletedBy         string            `gorm:"column:deleted_by;type:text;not null"`
	DeletionReason    *string           `gorm:"column:deletion_reason;type:text"`
	DeletedAt         time.Time         `gorm:"column:deleted_at;not null"`
	OriginalCreatedAt time.Time         `gorm:"column:original_created_at;not null"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}
