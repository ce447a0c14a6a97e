package domain

import (
	"encoding/json"
	"time"
)

// Outcome states mirror jsonfetch.State names.
const (
	OutcomeResolved = "resolved"
	OutcomeRejected = "rejected"
)

// Outcome records how one fetch of a target settled.
type Outcome struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id,omitempty"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	Bytes      int       `json:"bytes"`
	Summary    string    `json:"summary,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
	ElapsedMs  int64     `json:"elapsed_ms"`

	// Payload is the resolved JSON body. It is only kept for direct output and
	// is never journaled or published.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Resolved reports whether the fetch resolved with status 200.
func (o Outcome) Resolved() bool { return o.State == OutcomeResolved }
