package repository

import (
	"context"
	"time"

	"push-delivery-plane/internal/subscription/domain"
)

// Repository defines the read/mutate surface of the subscription directory
// used by dispatch. Subscriptions are created by the subscribe flow, not
// here; the only mutations are touching last_used_at on delivery and
// deleting subscriptions a relay reported gone.
type Repository interface {
	// ListEnabled returns all enabled subscriptions for the org, narrowed to
	// one user when userID is non-nil.
	ListEnabled(ctx context.Context, orgID string, userID *string) ([]*domain.PushSubscription, error)
	// TouchLastUsed sets the subscription's last_used_at timestamp.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	// Delete removes the subscription. Deleting an already-deleted id is not
	// an error.
	Delete(ctx context.Context, id string) error
}
