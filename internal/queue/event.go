// Package queue defines message payloads exchanged over the message broker.
package queue

// Actions carried by NoteEvent.
const (
	ActionCreated = "created"
	ActionRevised = "revised"
	ActionDeleted = "deleted"
)

// NoteEvent is published after a note mutation commits. It carries
// enough information for downstream consumers to log or trigger
// analytics without querying the primary database.
type NoteEvent struct {
	Action            string  `json:"action"`
	NoteID            uint64  `json:"note_id"`
	UserID            uint64  `json:"user_id"`
	PreviousVersionID *uint64 `json:"previous_version_id,omitempty"`
	OccurredAt        string  `json:"occurred_at"`
}
