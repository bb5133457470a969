// Package domain holds the push subscription model consumed by dispatch.
package domain

import "time"

// Keys holds the subscriber's key material as handed out by the browser at
// subscribe time.
type Keys struct {
	// P256dh is the subscriber's ECDH public key, base64url uncompressed
	// point (65 bytes decoded).
	P256dh string
	// Auth is the subscriber's 16-byte authentication secret, base64url.
	Auth string
}

// PushSubscription is one browser push subscription owned by an
// organization, optionally bound to a single user. Subscriptions are created
// and updated by the subscribe flow elsewhere; this service only reads them,
// touches last_used_at on delivery, and deletes the ones a relay reports
// gone.
type PushSubscription struct {
	ID       string
	OrgID    string
	UserID   string // empty when not bound to a single user
	Endpoint string
	Keys     Keys
	// Preferences maps named notification categories to opt-in flags.
	Preferences map[string]bool
	Enabled     bool
	LastUsedAt  *time.Time // nil until the first successful delivery
	CreatedAt   time.Time
}

// MatchesPreferences reports whether the subscription opts into every
// category the filter requires. A category the filter sets to true must be
// true in Preferences; a category missing from Preferences excludes the
// subscription (fail-closed). Filter entries set to false impose no
// requirement, and a nil or empty filter matches everything.
func (s *PushSubscription) MatchesPreferences(filter map[string]bool) bool {
	for category, required := range filter {
		if !required {
			continue
		}
		if !s.Preferences[category] {
			return false
		}
	}
	return true
}
