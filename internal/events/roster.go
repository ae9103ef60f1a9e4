// Package events defines roster event payloads shared by the API and the audit consumer.
package events

import "time"

// Event types carried in the event_type header.
const (
	ParticipantSignedUp     = "participant.signed_up"
	ParticipantUnregistered = "participant.unregistered"
)

// RosterChanged is emitted after a participant joins or leaves an activity.
type RosterChanged struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	Activity         string    `json:"activity"`
	Email            string    `json:"email"`
	ParticipantCount int       `json:"participant_count"`
	MaxParticipants  *int      `json:"max_participants,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
