package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"push-delivery-plane/internal/webpush"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultTTLSeconds    = 86400
	defaultMaxAttempts   = 3
	defaultRetryInterval = 500 * time.Millisecond
)

// Dispatcher performs the HTTP delivery of one encrypted record to one
// subscriber endpoint and classifies the relay's response.
type Dispatcher struct {
	// Identity is the VAPID sender identity used to authenticate to relays.
	Identity *webpush.Identity
	// HTTPClient is the client used for relay requests. Its timeout bounds
	// each attempt so one slow relay cannot stall a batch.
	HTTPClient *http.Client
	// TTLSeconds is the value of the TTL header sent to the relay.
	TTLSeconds int
	// MaxAttempts is the total number of attempts per subscriber, first try
	// included. Only transient outcomes are retried.
	MaxAttempts int
	// RetryInterval is the initial backoff interval between attempts.
	RetryInterval time.Duration
}

// NewDispatcher returns a dispatcher with the default timeout, TTL, and
// retry policy.
func NewDispatcher(identity *webpush.Identity) *Dispatcher {
	return &Dispatcher{
		Identity:      identity,
		HTTPClient:    &http.Client{Timeout: defaultTimeout},
		TTLSeconds:    defaultTTLSeconds,
		MaxAttempts:   defaultMaxAttempts,
		RetryInterval: defaultRetryInterval,
	}
}

// Send posts the encrypted record to the endpoint with the push headers and
// VAPID authorization, retrying transient outcomes with exponential backoff.
// Delivered and PermanentlyInvalid are terminal and never retried; exhausted
// retries and cancellation surface as TransientFailure.
//
// The returned error is non-nil only when the VAPID token could not be
// signed. That is a sender configuration failure: the caller must abort the
// whole batch, since no relay will accept any delivery.
func (d *Dispatcher) Send(ctx context.Context, endpoint string, record []byte) (Outcome, error) {
	authorization, err := d.Identity.Authorization(endpoint, time.Now())
	if err != nil {
		if errors.Is(err, webpush.ErrSigningFailed) {
			return TransientFailure, err
		}
		// Malformed endpoint URL: a failure for this subscriber, but not
		// proof it unsubscribed, so the subscription is left untouched.
		return TransientFailure, nil
	}

	attempt := func() (Outcome, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(record))
		if err != nil {
			return TransientFailure, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Content-Encoding", "aes128gcm")
		req.Header.Set("TTL", strconv.Itoa(d.ttl()))
		req.Header.Set("Authorization", authorization)

		resp, err := d.httpClient().Do(req)
		if err != nil {
			return TransientFailure, err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		out := Classify(resp.StatusCode, nil)
		if out == TransientFailure {
			return out, fmt.Errorf("dispatch: relay returned status %d", resp.StatusCode)
		}
		return out, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.retryInterval()
	out, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(d.maxAttempts())),
	)
	if err != nil {
		// Retries exhausted, request not buildable, or context canceled.
		return TransientFailure, nil
	}
	return out, nil
}

func (d *Dispatcher) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (d *Dispatcher) ttl() int {
	if d.TTLSeconds > 0 {
		return d.TTLSeconds
	}
	return defaultTTLSeconds
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts > 0 {
		return d.MaxAttempts
	}
	return defaultMaxAttempts
}

func (d *Dispatcher) retryInterval() time.Duration {
	if d.RetryInterval > 0 {
		return d.RetryInterval
	}
	return defaultRetryInterval
}
