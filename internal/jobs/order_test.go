package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
)

func queueJob(priority enums.JobPriority, status enums.JobStatus, created time.Time) models.Job {
	return models.Job{
		Priority:  priority,
		Status:    status,
		CreatedAt: created,
	}
}

func TestLessPriorityWinsFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	urgent := queueJob(enums.JobPriorityUrgent, enums.JobStatusPending, now)
	low := queueJob(enums.JobPriorityLow, enums.JobStatusInProgress, now.Add(-time.Hour))

	require.True(t, Less(urgent, low, now))
	require.False(t, Less(low, urgent, now))
}

func TestLessOverdueBeatsInProgressWithinPriority(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-2 * time.Hour)

	overdue := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, past)
	overdue.DueDate = &past

	inProgress := queueJob(enums.JobPriorityNormal, enums.JobStatusInProgress, past)

	require.True(t, Less(overdue, inProgress, now))
	require.False(t, Less(inProgress, overdue, now))
}

func TestLessInProgressBeatsPending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	inProgress := queueJob(enums.JobPriorityNormal, enums.JobStatusInProgress, now)
	pending := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, now.Add(-time.Hour))

	require.True(t, Less(inProgress, pending, now))
}

func TestLessScheduleAnchorBreaksTies(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	early := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, now.Add(-3*time.Hour))
	late := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, now.Add(-time.Hour))

	require.True(t, Less(early, late, now))

	// A scheduled_at stamp overrides created_at as the anchor.
	sooner := now.Add(-4 * time.Hour)
	late.ScheduledAt = &sooner
	require.True(t, Less(late, early, now))
}

func TestLessTerminalJobsSortLast(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pending := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, now)
	scheduled := queueJob(enums.JobPriorityNormal, enums.JobStatusScheduled, now.Add(-time.Hour))

	// Scheduled jobs fall into the residual urgency class behind pending.
	require.True(t, Less(pending, scheduled, now))
}

func TestSortQueueStableOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	lowOverdue := queueJob(enums.JobPriorityLow, enums.JobStatusPending, past)
	lowOverdue.DueDate = &past
	urgentPending := queueJob(enums.JobPriorityUrgent, enums.JobStatusPending, now)
	normalInProgress := queueJob(enums.JobPriorityNormal, enums.JobStatusInProgress, past)
	normalPending := queueJob(enums.JobPriorityNormal, enums.JobStatusPending, past)

	queue := []models.Job{normalPending, lowOverdue, normalInProgress, urgentPending}
	SortQueue(queue, now)

	require.Equal(t, enums.JobPriorityUrgent, queue[0].Priority)
	require.Equal(t, enums.JobStatusInProgress, queue[1].Status)
	require.Equal(t, enums.JobPriorityNormal, queue[2].Priority)
	require.Equal(t, enums.JobStatusPending, queue[2].Status)
	require.Equal(t, enums.JobPriorityLow, queue[3].Priority)
}
