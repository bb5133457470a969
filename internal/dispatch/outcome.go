// Package dispatch delivers encrypted push records to relay endpoints and
// fans a notification out across an organization's subscriptions.
package dispatch

import "net/http"

// Outcome classifies one delivery attempt to a push relay. The set is
// closed: every attempt ends in exactly one of these states and there is no
// internal state beyond a single dispatch call.
type Outcome int

const (
	// Delivered means the relay accepted the message (2xx).
	Delivered Outcome = iota
	// TransientFailure covers transport errors and any relay status that
	// does not prove the subscription is gone. The subscription is left
	// untouched.
	TransientFailure
	// PermanentlyInvalid means the relay reported the subscription gone
	// (404 or 410); the subscription should be deleted from the directory.
	PermanentlyInvalid
)

// String returns the outcome name for logs and metrics attributes.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient_failure"
	case PermanentlyInvalid:
		return "permanently_invalid"
	default:
		return "unknown"
	}
}

// Classify maps a relay response to an Outcome. err is the transport error
// from the HTTP round trip, if any; status is ignored when err is non-nil.
// Pure function: unit-testable without a network.
func Classify(status int, err error) Outcome {
	if err != nil {
		return TransientFailure
	}
	switch {
	case status >= 200 && status < 300:
		return Delivered
	case status == http.StatusNotFound, status == http.StatusGone:
		return PermanentlyInvalid
	default:
		return TransientFailure
	}
}
