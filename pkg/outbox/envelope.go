package outbox

import (
	"encoding/json"
	"time"
)

// TriggerRef identifies what produced the event, either a scheduler cycle or
// a manual API request.
type TriggerRef struct {
	Scheduler string `json:"scheduler,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Trigger    *TriggerRef     `json:"trigger,omitempty"`
	Data       json.RawMessage `json:"data"`
}
