package enums

import "fmt"

// JobType distinguishes the two kinds of technician work.
type JobType string

const (
	JobTypeImaging     JobType = "imaging"
	JobTypeMaintenance JobType = "maintenance"
)

var validJobTypes = []JobType{
	JobTypeImaging,
	JobTypeMaintenance,
}

// String implements fmt.Stringer.
func (j JobType) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobType.
func (j JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobType converts raw input into a JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}
