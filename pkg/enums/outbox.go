package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateJob        OutboxAggregateType = "job"
	AggregateAsset      OutboxAggregateType = "asset"
	AggregateAssetAudit OutboxAggregateType = "asset_audit"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateJob,
	AggregateAsset,
	AggregateAssetAudit,
}

func (a OutboxAggregateType) IsValid() bool {
	return isOneOf(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum("aggregate type", validAggregateTypes, value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventJobCreated    OutboxEventType = "job_created"
	EventJobStarted    OutboxEventType = "job_started"
	EventJobCompleted  OutboxEventType = "job_completed"
	EventJobFailed     OutboxEventType = "job_failed"
	EventJobCancelled  OutboxEventType = "job_cancelled"
	EventJobUpdated    OutboxEventType = "job_updated"
	EventAuditRecorded OutboxEventType = "audit_recorded"
	EventAuditDeleted  OutboxEventType = "audit_deleted"
	EventAuditPurged   OutboxEventType = "audit_purged"
)

var validOutboxEventTypes = []OutboxEventType{
	EventJobCreated,
	EventJobStarted,
	EventJobCompleted,
	EventJobFailed,
	EventJobCancelled,
	EventJobUpdated,
	EventAuditRecorded,
	EventAuditDeleted,
	EventAuditPurged,
}

func (e OutboxEventType) IsValid() bool {
	return isOneOf(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum("event type", validOutboxEventTypes, value)
}

func isOneOf[T ~string](valid []T, v T) bool {
	for _, candidate := range valid {
		if candidate == v {
			return true
		}
	}
	return false
}

func parseEnum[T ~string](kind string, valid []T, value string) (T, error) {
	for _, candidate := range valid {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
