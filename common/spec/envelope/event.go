// Package envelope defines the envelope Hatoba uses to hand a normalised
// record to a downstream consumer. The forward sink POSTs one Event per
// accepted record; consumers dedupe on ID.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TypePrefix is prepended to the record's update type to form Event.Type.
const TypePrefix = "webhook."

// Event wraps one record for delivery to a consumer.
type Event struct {
	// Source is the gateway name the record arrived on (e.g. "max").
	Source string `json:"source"`

	// Type is TypePrefix followed by the update type, e.g.
	// "webhook.message_created". Untyped passthrough payloads use
	// "webhook.passthrough".
	Type string `json:"type"`

	// ID is the record's event_id. Empty for passthrough payloads.
	ID string `json:"id,omitempty"`

	// TS is the UTC time at which the delivery was received.
	TS time.Time `json:"ts"`

	// Payload carries the human-readable summary and the record itself.
	Payload EventPayload `json:"payload"`
}

// EventPayload holds the content of a forwarded record.
type EventPayload struct {
	// Message is the event_context description, suitable for display.
	Message string `json:"message"`

	// Data is the full record JSON, forwarded verbatim.
	Data json.RawMessage `json:"data,omitempty"`
}

// New builds an Event for a record of updateType.
func New(source, updateType, id string, ts time.Time, message string, data json.RawMessage) *Event {
	if updateType == "" {
		updateType = "passthrough"
	}
	return &Event{
		Source:  source,
		Type:    TypePrefix + updateType,
		ID:      id,
		TS:      ts.UTC(),
		Payload: EventPayload{Message: message, Data: data},
	}
}

// UpdateType returns the update type encoded in Type.
func (e *Event) UpdateType() string {
	return strings.TrimPrefix(e.Type, TypePrefix)
}

// Validate checks that an Event is structurally valid.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	if e.Source == "" {
		return fmt.Errorf("source must not be empty")
	}
	if !strings.HasPrefix(e.Type, TypePrefix) || len(e.Type) == len(TypePrefix) {
		return fmt.Errorf("type must look like %q, got %q", TypePrefix+"<update_type>", e.Type)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts must not be zero")
	}
	if len(e.Payload.Data) > 0 && !json.Valid(e.Payload.Data) {
		return fmt.Errorf("payload.data is not valid JSON")
	}
	return nil
}

// ParseEvent decodes a JSON-encoded Event and validates it.
func ParseEvent(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("envelope parse: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("envelope validate: %w", err)
	}
	return &evt, nil
}
