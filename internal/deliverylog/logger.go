// Package deliverylog records fan-out aggregates for operational history.
package deliverylog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"push-delivery-plane/internal/deliverylog/domain"
	logrepo "push-delivery-plane/internal/deliverylog/repository"
)

// Logger persists one entry per completed fan-out call. Best-effort:
// failures are logged and never affect the caller.
type Logger struct {
	repo logrepo.Repository
}

// NewLogger returns a Logger that persists to repo. A nil repo disables
// recording.
func NewLogger(repo logrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record writes one delivery-log entry. Best-effort: errors are logged and
// not returned.
func (l *Logger) Record(ctx context.Context, orgID, userID, title string, sent, failed, deleted, total int) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Title:     title,
		Sent:      sent,
		Failed:    failed,
		Deleted:   deleted,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("deliverylog: failed to record fan-out for org %s: %v", orgID, err)
	}
}
