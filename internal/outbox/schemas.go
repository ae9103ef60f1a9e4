package outbox

const rosterChangedSchema = `{
  "type": "object",
  "title": "RosterChanged",
  "properties": {
    "event_id": {"type": "string"},
    "event_type": {"type": "string", "enum": ["participant.signed_up", "participant.unregistered"]},
    "activity": {"type": "string"},
    "email": {"type": "string"},
    "participant_count": {"type": "integer", "minimum": 0},
    "max_participants": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "event_type", "activity", "email", "participant_count", "occurred_at"],
  "additionalProperties": false
}`

// SubjectForTopic returns the Schema Registry subject for values on topic.
func SubjectForTopic(topic string) string {
	return topic + "-value"
}
