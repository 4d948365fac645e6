package enums

import "fmt"

// JobPriority orders jobs within the technician queue.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityNormal JobPriority = "normal"
	JobPriorityHigh   JobPriority = "high"
	JobPriorityUrgent JobPriority = "urgent"
)

var validJobPriorities = []JobPriority{
	JobPriorityLow,
	JobPriorityNormal,
	JobPriorityHigh,
	JobPriorityUrgent,
}

var jobPriorityRanks = map[JobPriority]int{
	JobPriorityLow:    1,
	JobPriorityNormal: 2,
	JobPriorityHigh:   3,
	JobPriorityUrgent: 4,
}

// String implements fmt.Stringer.
func (j JobPriority) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobPriority.
func (j JobPriority) IsValid() bool {
	for _, candidate := range validJobPriorities {
		if candidate == j {
			return true
		}
	}
	return false
}

// Rank returns the numeric weight used for queue ordering. Higher wins.
// Unknown values rank below low so malformed rows sink to the bottom.
func (j JobPriority) Rank() int {
	if rank, ok := jobPriorityRanks[j]; ok {
		return rank
	}
	return 0
}

// ParseJobPriority converts raw input into a JobPriority.
func ParseJobPriority(value string) (JobPriority, error) {
	for _, candidate := range validJobPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job priority %q", value)
}
