package repository

import (
	"context"
	"database/sql"
	"fmt"

	"push-delivery-plane/internal/deliverylog/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a delivery-log repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	userID := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO delivery_log (id, org_id, user_id, title, sent, failed, deleted, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.OrgID, userID, e.Title, e.Sent, e.Failed, e.Deleted, e.Total, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("deliverylog: create: %w", err)
	}
	return nil
}

// ListByOrg returns entries for the org, newest first. Returns (nil, error)
// only on database errors.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, user_id, title, sent, failed, deleted, total, created_at
FROM delivery_log
WHERE org_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("deliverylog: list: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Entry, 0)
	for rows.Next() {
		var (
			e      domain.Entry
			userID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OrgID, &userID, &e.Title,
			&e.Sent, &e.Failed, &e.Deleted, &e.Total, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("deliverylog: scan: %w", err)
		}
		if userID.Valid {
			e.UserID = userID.String
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deliverylog: list: %w", err)
	}
	return out, nil
}
