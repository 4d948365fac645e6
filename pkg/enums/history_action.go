package enums

import "fmt"

// HistoryAction classifies an asset history entry.
type HistoryAction string

const (
	HistoryActionStatusChange     HistoryAction = "status_change"
	HistoryActionFieldChange      HistoryAction = "field_change"
	HistoryActionAssignmentChange HistoryAction = "assignment_change"
)

var validHistoryActions = []HistoryAction{
	HistoryActionStatusChange,
	HistoryActionFieldChange,
	HistoryActionAssignmentChange,
}

// String implements fmt.Stringer.
func (h HistoryAction) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HistoryAction.
func (h HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
