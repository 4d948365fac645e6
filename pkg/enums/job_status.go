package enums

import "fmt"

// JobStatus tracks the lifecycle of an imaging or maintenance job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var validJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusScheduled,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusFailed,
	JobStatusCancelled,
}

// ActiveJobStatuses are the non-terminal statuses counted against the
// one-active-job-per-asset rule.
var ActiveJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusScheduled,
	JobStatusInProgress,
}

// String implements fmt.Stringer.
func (j JobStatus) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobStatus.
func (j JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the job lifecycle.
func (j JobStatus) IsTerminal() bool {
	switch j {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status counts as an open unit of work.
func (j JobStatus) IsActive() bool {
	switch j {
	case JobStatusPending, JobStatusScheduled, JobStatusInProgress:
		return true
	}
	return false
}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
