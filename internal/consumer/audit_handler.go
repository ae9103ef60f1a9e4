package consumer

import (
	"context"
	"log"

	"example.com/mergington/internal/observability"
)

// AuditHandler logs every roster change and mirrors participant counts into metrics.
type AuditHandler struct {
	logger *log.Logger
}

// NewAuditHandler constructs an AuditHandler writing to logger.
func NewAuditHandler(logger *log.Logger) *AuditHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[audit] ", log.LstdFlags)
	}
	return &AuditHandler{logger: logger}
}

// Handle implements Handler.
func (h *AuditHandler) Handle(_ context.Context, evt Event) error {
	h.logger.Printf("%s activity=%q email=%s count=%d event_id=%s", evt.EventType, evt.Activity, evt.Email, evt.ParticipantCount, evt.EventID)
	observability.RecordParticipants(evt.Activity, evt.ParticipantCount)
	return nil
}
