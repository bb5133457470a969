package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"push-delivery-plane/internal/subscription/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a subscription repository backed by the
// given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const listEnabledBase = `
SELECT id, org_id, user_id, endpoint, p256dh, auth, preferences, enabled, last_used_at, created_at
FROM push_subscriptions
WHERE org_id = $1 AND enabled = TRUE`

// ListEnabled returns all enabled subscriptions for the org, narrowed to one
// user when userID is non-nil. Returns an empty slice, not an error, when
// nothing matches.
func (r *PostgresRepository) ListEnabled(ctx context.Context, orgID string, userID *string) ([]*domain.PushSubscription, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID != nil && *userID != "" {
		rows, err = r.db.QueryContext(ctx, listEnabledBase+` AND user_id = $2`, orgID, *userID)
	} else {
		rows, err = r.db.QueryContext(ctx, listEnabledBase, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: list: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PushSubscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("subscription: scan: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscription: list: %w", err)
	}
	return out, nil
}

// TouchLastUsed sets the subscription's last_used_at timestamp. A missing
// row is not an error; the subscription may have been deleted concurrently.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("subscription: touch last used: %w", err)
	}
	return nil
}

// Delete removes the subscription. Idempotent: deleting an id that is
// already gone succeeds.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("subscription: delete: %w", err)
	}
	return nil
}

func scanSubscription(rows *sql.Rows) (*domain.PushSubscription, error) {
	var (
		sub         domain.PushSubscription
		userID      sql.NullString
		preferences []byte
		lastUsedAt  sql.NullTime
	)
	if err := rows.Scan(&sub.ID, &sub.OrgID, &userID, &sub.Endpoint,
		&sub.Keys.P256dh, &sub.Keys.Auth, &preferences, &sub.Enabled,
		&lastUsedAt, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		sub.UserID = userID.String
	}
	if len(preferences) > 0 {
		if err := json.Unmarshal(preferences, &sub.Preferences); err != nil {
			return nil, fmt.Errorf("preferences for %s: %w", sub.ID, err)
		}
	}
	if lastUsedAt.Valid {
		sub.LastUsedAt = &lastUsedAt.Time
	}
	return &sub, nil
}
