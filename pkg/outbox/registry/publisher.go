// Package registry maps outbox event types to topics and payload schemas,
// and parks rows that can never publish behind a non-retryable error.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// terminal wraps fmt.Errorf into a non-retryable error.
func terminal(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry maps each supported event type to its descriptor and holds
// the versioned payload decoders behind Resolve.
type EventRegistry struct {
	entries  map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

var jobEventTypes = []enums.OutboxEventType{
	enums.EventJobCreated,
	enums.EventJobStarted,
	enums.EventJobCompleted,
	enums.EventJobFailed,
	enums.EventJobCancelled,
	enums.EventJobUpdated,
}

// NewEventRegistry builds the registry with the configured topic names. All
// domain events currently share one topic; subscribers filter on event type.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}

	reg := &EventRegistry{
		entries:  make(map[enums.OutboxEventType]EventDescriptor),
		decoders: NewDecoderRegistry(),
	}
	for _, eventType := range jobEventTypes {
		reg.add(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateJob,
			Topic:          cfg.DomainTopic,
			PayloadFactory: func() any { return &payloads.JobEvent{} },
		})
	}
	for eventType, factory := range map[enums.OutboxEventType]func() any{
		enums.EventAuditRecorded: func() any { return &payloads.AuditRecordedEvent{} },
		enums.EventAuditDeleted:  func() any { return &payloads.AuditDeletedEvent{} },
		enums.EventAuditPurged:   func() any { return &payloads.AuditPurgedEvent{} },
	} {
		reg.add(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateAssetAudit,
			Topic:          cfg.DomainTopic,
			PayloadFactory: factory,
		})
	}
	return reg, nil
}

// add registers the descriptor and its schema-v1 decoder. Bumping a payload
// schema means registering the new version here alongside the old one.
func (r *EventRegistry) add(desc EventDescriptor) {
	r.entries[desc.EventType] = desc
	r.decoders.Register(desc.EventType, payloads.SchemaVersion, func(data json.RawMessage) (any, error) {
		payload := desc.PayloadFactory()
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable because a malformed row stays malformed across attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, terminal("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, terminal("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, terminal("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, terminal("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, terminal("payload missing for %s", event.EventType)
	}

	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, terminal("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
