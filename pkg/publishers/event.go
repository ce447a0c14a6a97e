package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/getjson/internal/domain"
)

// Event represents the payload published downstream for one settled fetch.
type Event struct {
	ID          string         `json:"id"`
	TargetID    string         `json:"target_id"`
	Outcome     domain.Outcome `json:"outcome"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewEvent wraps an outcome in an Event with a fresh id.
func NewEvent(o domain.Outcome) Event {
	return Event{
		ID:          uuid.NewString(),
		TargetID:    o.TargetID,
		Outcome:     o,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are attached as message attributes by queue and topic sinks.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"state": e.Outcome.State,
	}
	if e.TargetID != "" {
		attrs["target_id"] = e.TargetID
	}
	return attrs
}
