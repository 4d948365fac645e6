package enums

import "fmt"

// AssetStatus tracks the operational state of a physical asset.
type AssetStatus string

const (
	AssetStatusInStock     AssetStatus = "in_stock"
	AssetStatusActive      AssetStatus = "active"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusRetired     AssetStatus = "retired"
	AssetStatusLost        AssetStatus = "lost"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusInStock,
	AssetStatusActive,
	AssetStatusMaintenance,
	AssetStatusRetired,
	AssetStatusLost,
}

// String implements fmt.Stringer.
func (a AssetStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssetStatus.
func (a AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw input into an AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
