// Package domain holds the delivery-log entry model.
package domain

import "time"

// Entry records the aggregate of one fan-out call against an organization.
// It is operational history for dashboards, not a delivery guarantee.
type Entry struct {
	ID        string
	OrgID     string
	UserID    string // empty when the call targeted the whole org
	Title     string
	Sent      int
	Failed    int
	Deleted   int
	Total     int
	CreatedAt time.Time
}
