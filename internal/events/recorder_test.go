package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEmitter implements Emitter for tests.
type mockEmitter struct {
	mu      sync.Mutex
	events  []*DeliveryEvent
	emitErr error
}

func (m *mockEmitter) Emit(_ context.Context, event *DeliveryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEmitter) getEvents() []*DeliveryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestRecord_PublishesEvent(t *testing.T) {
	emitter := &mockEmitter{}
	r := NewRecorder(emitter)

	r.Record(context.Background(), "org-1", "alice", "Build done", 3, 1, 1, 4)

	// Emit runs asynchronously.
	time.Sleep(100 * time.Millisecond)

	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.OrgID != "org-1" || e.UserID != "alice" || e.Title != "Build done" {
		t.Errorf("unexpected event fields: %+v", e)
	}
	if e.Sent != 3 || e.Failed != 1 || e.Deleted != 1 || e.Total != 4 {
		t.Errorf("unexpected counters: %+v", e)
	}
	if _, err := time.Parse(time.RFC3339, e.CreatedAt); err != nil {
		t.Errorf("createdAt is not RFC3339: %q", e.CreatedAt)
	}
}

func TestRecord_NilEmitterIsNoop(t *testing.T) {
	r := NewRecorder(nil)
	// Should not panic or start a goroutine.
	r.Record(context.Background(), "org-1", "", "t", 0, 0, 0, 0)
}

func TestRecord_SurvivesCancelledRequestContext(t *testing.T) {
	emitter := &mockEmitter{}
	r := NewRecorder(emitter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, "org-1", "", "t", 1, 0, 0, 1)

	time.Sleep(100 * time.Millisecond)

	if len(emitter.getEvents()) != 1 {
		t.Error("expected emit to use a background context")
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	emitter := &mockEmitter{emitErr: errors.New("broker unreachable")}

	EmitAsync(emitter, &DeliveryEvent{OrgID: "org-1"})

	time.Sleep(100 * time.Millisecond)
	// Error is logged, never propagated.
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEmitter{}
	EmitAsync(emitter, nil)

	time.Sleep(10 * time.Millisecond)
	if len(emitter.getEvents()) != 0 {
		t.Error("expected no events for nil event")
	}
}
