package application

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/ports"
)

const (
	eventTypeUserRegistered         = "user.registered"
	eventTypeLoginSucceeded         = "user.login.succeeded"
	eventTypeUserLocked             = "user.locked"
	eventTypePasswordChanged        = "user.password_changed"
	eventTypePasswordResetRequested = "user.password_reset.requested"
	eventTypeUserStatusChanged      = "user.status_changed"
)

func (s *Service) newEvent(eventType string, userID uuid.UUID, payload map[string]any) ports.OutboxEvent {
	now := s.nowFn()
	if payload == nil {
		payload = map[string]any{}
	}
	payload["occurred_at"] = now
	if userID != uuid.Nil {
		payload["user_id"] = userID.String()
	}
	raw, _ := json.Marshal(payload)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: userID.String(),
		Payload:      raw,
		OccurredAt:   now,
	}
}

// emit enqueues a side-channel event. The triggering operation has already
// committed, so failures are logged rather than returned.
func (s *Service) emit(ctx context.Context, eventType string, userID uuid.UUID, payload map[string]any) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, s.newEvent(eventType, userID, payload)); err != nil {
		serviceLogger().WarnContext(ctx, "outbox enqueue failed",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}
