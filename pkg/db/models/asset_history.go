package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// AssetHistory is one append-only entry in the per-asset change log.
type AssetHistory struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID   uuid.UUID           `gorm:"column:asset_id;type:uuid;not null;index"`
	Action    enums.HistoryAction `gorm:"column:action;type:history_action_enum;not null"`
	Field     string              `gorm:"column:field;type:text;not null"`
	OldValue  *string             `gorm:"column:old_value;type:text"`
	NewValue  *string             `gorm:"column:new_value;type:text"`
	ChangedBy string              `gorm:"column:changed_by;type:text;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
