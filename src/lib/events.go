package lib

import (
	"context"
	"time"
	"tourbook/src/types"

	"github.com/google/uuid"
)

// EventEnvelope wraps a lifecycle payload with its type, a unique id and
// the time it was emitted.
func EventEnvelope(event types.LifecycleEvent, payload types.JSONB) types.JSONB {
	return types.JSONB{
		"id":          uuid.NewString(),
		"type":        string(event),
		"occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
		"data":        payload,
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) error {
	GetLogger().WithField("event", event).Debug("event publishing disabled")
	return nil
}
