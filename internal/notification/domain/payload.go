// Package domain holds the notification payload value object.
package domain

import "errors"

var (
	// ErrMissingTitle is returned when a payload has no title.
	ErrMissingTitle = errors.New("notification: title is required")
	// ErrMissingBody is returned when a payload has no body.
	ErrMissingBody = errors.New("notification: body is required")
)

// Action is one action button shown on the notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Payload is the notification the subscriber's browser displays. It is
// serialized to UTF-8 JSON and the serialized bytes are the plaintext input
// to payload encryption; it is never persisted by this service.
type Payload struct {
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	Icon               string   `json:"icon,omitempty"`
	Badge              string   `json:"badge,omitempty"`
	Tag                string   `json:"tag,omitempty"`
	URL                string   `json:"url,omitempty"`
	RequireInteraction bool     `json:"requireInteraction,omitempty"`
	Actions            []Action `json:"actions,omitempty"`
}

// Validate checks the required fields. Title and body must be present;
// everything else is optional.
func (p *Payload) Validate() error {
	if p.Title == "" {
		return ErrMissingTitle
	}
	if p.Body == "" {
		return ErrMissingBody
	}
	return nil
}
