package events

import (
	"context"
	"time"
)

// Recorder adapts an Emitter to the fan-out recorder surface. It publishes
// one DeliveryEvent per completed fan-out call, fire-and-forget.
type Recorder struct {
	emitter Emitter
}

// NewRecorder returns a recorder publishing through emitter. A nil emitter
// disables publishing.
func NewRecorder(emitter Emitter) *Recorder {
	return &Recorder{emitter: emitter}
}

// Record publishes the fan-out aggregate asynchronously.
func (r *Recorder) Record(_ context.Context, orgID, userID, title string, sent, failed, deleted, total int) {
	if r == nil {
		return
	}
	EmitAsync(r.emitter, &DeliveryEvent{
		OrgID:     orgID,
		UserID:    userID,
		Title:     title,
		Sent:      sent,
		Failed:    failed,
		Deleted:   deleted,
		Total:     total,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
