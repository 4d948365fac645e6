package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// AssetAudit is one scan or verification event captured during a physical sweep.
// Rows are immutable in intent: edits go through the archive service and removal
// is a soft-delete flag, never a physical delete.
type AssetAudit struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuditDate        time.Time         `gorm:"column:audit_date;not null"`
	AssetID          *uuid.UUID        `gorm:"column:asset_id;type:uuid;index"`
	AssetTag         string            `gorm:"column:asset_tag;type:text;not null"`
	AssetType        enums.AssetType   `gorm:"column:asset_type;type:asset_type_enum;not null;default:'other'"`
	Status           enums.AssetStatus `gorm:"column:status;type:asset_status_enum;not null"`
	Location         string            `gorm:"column:location;type:text;not null;default:''"`
	AuditedBy        string            `gorm:"column:audited_by;type:text;not null"`
	Notes            *string           `gorm:"column:notes"`
	IsNewAsset       bool              `gorm:"column:is_new_asset;not null;default:false"`
	PreviousStatus   *string           `gorm:"column:previous_status;type:text"`
	PreviousLocation *string           `gorm:"column:previous_location;type:text"`
	AuditSessionID   string            `gorm:"column:audit_session_id;type:text;not null;index"`
	IsDeleted        bool              `gorm:"column:is_deleted;not null;default:false"`
	DeletedAt        *time.Time        `gorm:"column:deleted_at"`
	DeletedBy        *string           `gorm:"column:deleted_by;type:text"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}
