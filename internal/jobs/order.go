package jobs

import (
	"sort"
	"time"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

// Urgency classes for queue ordering. Lower sorts first within a priority.
const (
	urgencyOverdue    = 1
	urgencyInProgress = 2
	urgencyPending    = 3
	urgencyOther      = 4
)

// urgencyClass derives a job's urgency bucket at the given instant: an
// overdue job beats an in-progress one, which beats a pending one.
func urgencyClass(job models.Job, now time.Time) int {
	switch {
	case job.IsOverdue(now):
		return urgencyOverdue
	case job.Status == enums.JobStatusInProgress:
		return urgencyInProgress
	case job.Status == enums.JobStatusPending:
		return urgencyPending
	default:
		return urgencyOther
	}
}

// scheduleAnchor is the timestamp used for the final tie-break: scheduled_at
// when set, created_at otherwise.
func scheduleAnchor(job models.Job) time.Time {
	if job.ScheduledAt != nil {
		return *job.ScheduledAt
	}
	return job.CreatedAt
}

// Less is the pure queue comparator over immutable job snapshots: priority
// descending, then urgency class ascending, then schedule anchor ascending.
func Less(a, b models.Job, now time.Time) bool {
	if ar, br := a.Priority.Rank(), b.Priority.Rank(); ar != br {
		return ar > br
	}
	if ac, bc := urgencyClass(a, now), urgencyClass(b, now); ac != bc {
		return ac < bc
	}
	return scheduleAnchor(a).Before(scheduleAnchor(b))
}

// SortQueue orders jobs in place using Less evaluated at one instant, so a
// job cannot change urgency class mid-sort.
func SortQueue(jobs []models.Job, now time.Time) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return Less(jobs[i], jobs[j], now)
	})
}
