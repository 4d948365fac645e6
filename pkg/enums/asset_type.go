package enums

import "fmt"

// AssetType categorizes the hardware class of an asset.
type AssetType string

const (
	AssetTypeLaptop     AssetType = "laptop"
	AssetTypeDesktop    AssetType = "desktop"
	AssetTypeMonitor    AssetType = "monitor"
	AssetTypeServer     AssetType = "server"
	AssetTypePrinter    AssetType = "printer"
	AssetTypePeripheral AssetType = "peripheral"
	AssetTypeOther      AssetType = "other"
)

var validAssetTypes = []AssetType{
	AssetTypeLaptop,
	AssetTypeDesktop,
	AssetTypeMonitor,
	AssetTypeServer,
	AssetTypePrinter,
	AssetTypePeripheral,
	AssetTypeOther,
}

// String implements fmt.Stringer.
func (a AssetType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssetType.
func (a AssetType) IsValid() bool {
	for _, candidate := range validAssetTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssetType converts raw input into an AssetType.
func ParseAssetType(value string) (AssetType, error) {
	for _, candidate := range validAssetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset type %q", value)
}
