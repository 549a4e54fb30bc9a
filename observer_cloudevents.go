package modgraph

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is the event type delivered to observers.
type CloudEvent = cloudevents.Event

// NewCloudEvent builds a spec-version 1.0 event of eventType from source,
// with data encoded as JSON. Event IDs are UUIDv7, so they sort by creation
// time. extensions become CloudEvents extension attributes.
//
//	event := modgraph.NewCloudEvent(modgraph.EventTypeModuleActivated, "app",
//		modgraph.EventData{Module: "acme/blog.Module"}, nil)
func NewCloudEvent(eventType, source string, data any, extensions map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent(cloudevents.VersionV1)
	event.SetID(newEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	for name, value := range extensions {
		event.SetExtension(name, value)
	}
	return event
}

func newEventID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ValidateCloudEvent reports whether event carries the attributes CloudEvents
// requires (id, source, type, specversion).
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid CloudEvent: %w", err)
	}
	return nil
}

// DecodeEventData validates event and extracts its EventData payload.
// Observers that receive events from other producers, such as a bus
// forwarding them, use it to reject anything this package did not emit.
func DecodeEventData(event cloudevents.Event) (EventData, error) {
	if err := ValidateCloudEvent(event); err != nil {
		return EventData{}, err
	}
	var data EventData
	if err := event.DataAs(&data); err != nil {
		return EventData{}, fmt.Errorf("failed to decode event data: %w", err)
	}
	return data, nil
}
