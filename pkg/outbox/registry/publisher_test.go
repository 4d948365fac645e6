package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		DomainTopic:        "domain-topic",
		DomainSubscription: "domain-topic-sub",
	})
	require.NoError(t, err)
	return reg
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	jobID := uuid.New()
	payloadBytes, err := json.Marshal(payloads.JobEvent{
		JobID:    jobID,
		AssetID:  uuid.New(),
		JobType:  enums.JobTypeImaging,
		Status:   enums.JobStatusPending,
		Priority: enums.JobPriorityHigh,
	})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventJobCreated,
		AggregateType: enums.AggregateJob,
		AggregateID:   jobID,
		Payload:       mustEnvelope(t, payloadBytes),
	})
	require.NoError(t, err)

	require.Equal(t, "domain-topic", resolved.Descriptor.Topic)
	require.Equal(t, enums.EventJobCreated, resolved.Descriptor.EventType)
	require.NotEmpty(t, resolved.Envelope.EventID)
	require.False(t, resolved.Envelope.OccurredAt.IsZero())

	payload, ok := resolved.Payload.(*payloads.JobEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Equal(t, jobID, payload.JobID)
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	tests := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name: "unknown event type",
			event: models.OutboxEvent{
				EventType:     enums.OutboxEventType("asset_relabeled"),
				AggregateType: enums.AggregateAsset,
				AggregateID:   uuid.New(),
				Payload:       []byte(`{"data":{"reason":"none"}}`),
			},
		},
		{
			name: "aggregate mismatch",
			event: models.OutboxEvent{
				EventType:     enums.EventJobCreated,
				AggregateType: enums.AggregateAssetAudit,
				AggregateID:   uuid.New(),
				Payload:       []byte(`{"data":{}}`),
			},
		},
		{
			name: "missing aggregate id",
			event: models.OutboxEvent{
				EventType:     enums.EventAuditRecorded,
				AggregateType: enums.AggregateAssetAudit,
				AggregateID:   uuid.Nil,
				Payload:       []byte(`{"data":{}}`),
			},
		},
		{
			name: "null payload data",
			event: models.OutboxEvent{
				EventType:     enums.EventJobCompleted,
				AggregateType: enums.AggregateJob,
				AggregateID:   uuid.New(),
				Payload:       []byte(`{"data":null}`),
			},
		},
		{
			name: "unknown schema version",
			event: models.OutboxEvent{
				EventType:     enums.EventJobCompleted,
				AggregateType: enums.AggregateJob,
				AggregateID:   uuid.New(),
				Payload:       []byte(`{"version":99,"data":{"job_id":"00000000-0000-0000-0000-000000000001"}}`),
			},
		},
		{
			name: "envelope not json",
			event: models.OutboxEvent{
				EventType:     enums.EventJobCompleted,
				AggregateType: enums.AggregateJob,
				AggregateID:   uuid.New(),
				Payload:       []byte(`not-json`),
			},
		},
	}

	reg := newTestEventRegistry(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Resolve(tc.event)
			require.Error(t, err)

			// Malformed rows must park in the DLQ instead of retrying forever.
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry), "expected non-retryable, got %T", err)
		})
	}
}

func TestEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}
