package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
)

// publishEvent hands the event to the dispatcher and ignores the result: notification
// fan-out must never fail the mutation that triggered it.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, clock Clock, eventType events.EventType, subjectID string, actor *domain.Worker, payload any) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: clock.Now(),
		Payload:   payload,
	}
	if actor != nil {
		id := actor.ID
		event.ActorID = &id
	}
	_ = dispatcher.Publish(ctx, event)
}

func strPtr(v string) *string {
	return &v
}
