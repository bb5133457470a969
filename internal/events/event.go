// Package events ships best-effort delivery events to the operational
// pipeline. One event is published per completed fan-out call; losing one
// never affects dispatch.
package events

import (
	"context"
	"log"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait before shutting down the
// producer so in-flight async emits have time to complete. Must be >=
// emitTimeout.
const ShutdownDrainDuration = emitTimeout

// DeliveryEvent is the JSON event published after each fan-out call.
type DeliveryEvent struct {
	OrgID     string `json:"orgId"`
	UserID    string `json:"userId,omitempty"`
	Title     string `json:"title"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Deleted   int    `json:"deleted"`
	Total     int    `json:"total"`
	CreatedAt string `json:"createdAt"` // RFC3339
}

// Emitter emits delivery events. Best-effort; callers log and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, event *DeliveryEvent) error
}

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is
// not blocked. emitter and event may be nil; EmitAsync returns immediately
// without starting a goroutine. The goroutine uses context.Background()
// with emitTimeout so request cancellation does not abort an in-flight
// emit.
func EmitAsync(emitter Emitter, event *DeliveryEvent) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("events: async emit failed: %v", err)
		}
	}()
}
