package repository

import (
	"context"

	"push-delivery-plane/internal/deliverylog/domain"
)

// Repository defines persistence for delivery-log entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	// ListByOrg returns entries for the org, newest first, paginated by
	// limit and offset.
	ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Entry, error)
}
