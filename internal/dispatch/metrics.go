package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the dispatch instruments registered on the service meter.
// A nil *Metrics disables recording.
type Metrics struct {
	delivered  metric.Int64Counter
	failed     metric.Int64Counter
	deleted    metric.Int64Counter
	fanoutSize metric.Int64Histogram
}

// NewMetrics registers the dispatch instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	delivered, err := meter.Int64Counter("push.dispatch.delivered",
		metric.WithDescription("Deliveries accepted by a push relay."))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("push.dispatch.failed",
		metric.WithDescription("Dispatch attempts that did not deliver."))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("push.dispatch.deleted",
		metric.WithDescription("Subscriptions removed after a relay reported them gone."))
	if err != nil {
		return nil, err
	}
	fanoutSize, err := meter.Int64Histogram("push.fanout.size",
		metric.WithDescription("Subscriptions attempted per fan-out call."))
	if err != nil {
		return nil, err
	}
	return &Metrics{delivered: delivered, failed: failed, deleted: deleted, fanoutSize: fanoutSize}, nil
}

// RecordFanout adds one fan-out call's aggregate to the instruments.
func (m *Metrics) RecordFanout(ctx context.Context, orgID string, res *FanoutResult) {
	if m == nil || res == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("org.id", orgID))
	m.delivered.Add(ctx, int64(res.Sent), attrs)
	m.failed.Add(ctx, int64(res.Failed), attrs)
	m.deleted.Add(ctx, int64(res.Deleted), attrs)
	m.fanoutSize.Record(ctx, int64(res.Total), attrs)
}
