package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// Asset is the durable record of one physical IT asset.
type Asset struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Tag                  string            `gorm:"column:tag;type:text;not null;uniqueIndex"`
	SerialNumber         *string           `gorm:"column:serial_number;type:text;uniqueIndex"`
	PCID                 *string           `gorm:"column:pc_id;type:text;uniqueIndex"`
	AssetType            enums.AssetType   `gorm:"column:asset_type;type:asset_type_enum;not null;default:'other'"`
	Status               enums.AssetStatus `gorm:"column:status;type:asset_status_enum;not null;default:'in_stock'"`
	Location             string            `gorm:"column:location;type:text;not null;default:''"`
	Model                *string           `gorm:"column:model;type:text"`
	IsAudited            bool              `gorm:"column:is_audited;not null;default:false"`
	LastAuditDate        *time.Time        `gorm:"column:last_audit_date"`
	AssignedEmployeeID   *uuid.UUID        `gorm:"column:assigned_employee_id;type:uuid"`
	AssignedDepartmentID *uuid.UUID        `gorm:"column:assigned_department_id;type:uuid"`
	Notes                *string           `gorm:"column:notes"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAssigned reports whether the asset is checked out to an employee or department.
func (a Asset) IsAssigned() bool {
	return a.AssignedEmployeeID != nil || a.AssignedDepartmentID != nil
}
