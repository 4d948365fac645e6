package audits

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
)

// ScanInput carries one scanned identifier and its context.
type ScanInput struct {
	ScannedCode string
	AuditedBy   string
	Location    *string
	Notes       *string
	SessionID   *string
}

// ScanResult is the typed outcome of a scan. Exactly one of the new-discovery
// and verified shapes applies; Asset is nil for new discoveries.
type ScanResult struct {
	Audit           *models.AssetAudit
	Asset           *models.Asset
	IsNew           bool
	LocationChanged bool
	StatusChanged   bool
	Duplicate       bool
	PreviousScanAt  *time.Time
	Message         string
}

// StatusUpdateInput is the manual correction path input. Status is raw text
// on purpose: unknown values are ignored rather than rejected.
type StatusUpdateInput struct {
	AssetID   uuid.UUID
	Status    string
	Location  *string
	AuditedBy string
	Notes     *string
	SessionID *string
}

// StatusUpdateResult reports what the manual correction actually changed.
// StatusParseIgnored is set when the requested status did not parse and was
// treated as "no status change".
type StatusUpdateResult struct {
	Audit              *models.AssetAudit
	Asset              *models.Asset
	LocationChanged    bool
	StatusChanged      bool
	StatusParseIgnored bool
	SessionID          string
	Message            string
}

// Statistics summarizes a set of audit records.
type Statistics struct {
	Total           int64 `json:"total"`
	NewAssets       int64 `json:"new_assets"`
	ExistingAssets  int64 `json:"existing_assets"`
	LocationChanges int64 `json:"location_changes"`
	StatusChanges   int64 `json:"status_changes"`
}

// AssetAuditStatus pairs an asset with whether it has been audited, either in
// a specific session or ever.
type AssetAuditStatus struct {
	Asset   models.Asset `json:"asset"`
	Audited bool         `json:"audited"`
}
