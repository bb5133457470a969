package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	notifdomain "push-delivery-plane/internal/notification/domain"
	subscriptionrepo "push-delivery-plane/internal/subscription/repository"
	"push-delivery-plane/internal/webpush"
)

// defaultConcurrency bounds parallel dispatch within one fan-out call so an
// organization with a very large subscriber count cannot exhaust outbound
// connections.
const defaultConcurrency = 32

var (
	// ErrNotConfigured is returned when the service has no VAPID identity.
	// Fatal for the whole call; no partial dispatch is attempted.
	ErrNotConfigured = errors.New("dispatch: VAPID identity not configured")
	// ErrDirectory is returned when the subscription directory cannot be
	// read. Fatal for the whole call.
	ErrDirectory = errors.New("dispatch: subscription directory unavailable")
	// ErrMissingOrg is returned when no organization id is given.
	ErrMissingOrg = errors.New("dispatch: organization id is required")
)

// FanoutRequest describes one fan-out call.
type FanoutRequest struct {
	OrgID string
	// UserID narrows dispatch to one user's subscriptions when non-empty.
	UserID       string
	Notification *notifdomain.Payload
	// PreferenceFilter keeps a subscription only if every category mapped to
	// true is also true in the subscription's own preferences.
	PreferenceFilter map[string]bool
}

// SubscriptionResult is the per-subscriber outcome returned to the caller.
type SubscriptionResult struct {
	SubscriptionID string `json:"subscription_id"`
	Success        bool   `json:"success"`
	Deleted        bool   `json:"deleted"`
}

// FanoutResult aggregates one fan-out call. Total counts attempted
// subscriptions; Sent + Failed always equals Total.
type FanoutResult struct {
	Sent    int
	Failed  int
	Deleted int
	Total   int
	Results []SubscriptionResult
}

// DeliveryRecorder records the aggregate of a completed fan-out call.
// Best-effort; implementations must not fail the caller.
type DeliveryRecorder interface {
	Record(ctx context.Context, orgID, userID, title string, sent, failed, deleted, total int)
}

// Recorders fans Record out to every recorder in order.
type Recorders []DeliveryRecorder

func (rs Recorders) Record(ctx context.Context, orgID, userID, title string, sent, failed, deleted, total int) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, orgID, userID, title, sent, failed, deleted, total)
		}
	}
}

// Orchestrator resolves the subscriptions for an (org, optional user) pair,
// filters them by preference, dispatches concurrently, and reconciles the
// directory from the outcomes.
type Orchestrator struct {
	repo        subscriptionrepo.Repository
	dispatcher  *Dispatcher
	recorder    DeliveryRecorder // may be nil
	metrics     *Metrics         // may be nil
	concurrency int
}

// NewOrchestrator returns an orchestrator dispatching through d with at most
// concurrency parallel deliveries. recorder and metrics may be nil.
func NewOrchestrator(repo subscriptionrepo.Repository, d *Dispatcher, recorder DeliveryRecorder, metrics *Metrics, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Orchestrator{repo: repo, dispatcher: d, recorder: recorder, metrics: metrics, concurrency: concurrency}
}

// Send fans the notification out to every enabled, preference-matching
// subscription of the organization. Per-subscriber failures are isolated:
// they are captured in the result, never aborting sibling deliveries. The
// returned error is non-nil only for fatal conditions (missing VAPID
// identity, invalid payload, unreachable directory, signing failure).
//
// An organization with zero matching subscriptions yields an all-zero
// result, not an error.
func (o *Orchestrator) Send(ctx context.Context, req *FanoutRequest) (*FanoutResult, error) {
	if o.dispatcher == nil || o.dispatcher.Identity == nil {
		return nil, ErrNotConfigured
	}
	if req.OrgID == "" {
		return nil, ErrMissingOrg
	}
	if req.Notification == nil {
		return nil, notifdomain.ErrMissingTitle
	}
	if err := req.Notification.Validate(); err != nil {
		return nil, err
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}
	subs, err := o.repo.ListEnabled(ctx, req.OrgID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectory, err)
	}

	eligible := subs[:0]
	for _, sub := range subs {
		if sub.MatchesPreferences(req.PreferenceFilter) {
			eligible = append(eligible, sub)
		}
	}

	result := &FanoutResult{Results: make([]SubscriptionResult, 0, len(eligible))}
	if len(eligible) == 0 {
		return result, nil
	}

	plaintext, err := json.Marshal(req.Notification)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode notification: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, sub := range eligible {
		g.Go(func() error {
			res := SubscriptionResult{SubscriptionID: sub.ID}

			record, err := webpush.Encrypt(plaintext, sub.Keys.P256dh, sub.Keys.Auth)
			if err != nil {
				// Permanent for this subscriber. Malformed keys are not
				// proof of unsubscription, so no deletion, and the payload
				// is never sent unencrypted instead.
				mu.Lock()
				result.Failed++
				result.Total++
				result.Results = append(result.Results, res)
				mu.Unlock()
				return nil
			}

			outcome, err := o.dispatcher.Send(gctx, sub.Endpoint, record)
			if err != nil {
				// Signing failure: the sender cannot authenticate to any
				// relay. Abort the batch; errgroup cancels the siblings.
				return err
			}

			switch outcome {
			case Delivered:
				res.Success = true
				if err := o.repo.TouchLastUsed(ctx, sub.ID, time.Now().UTC()); err != nil {
					log.Printf("dispatch: touch last_used_at for %s: %v", sub.ID, err)
				}
			case PermanentlyInvalid:
				if err := o.repo.Delete(ctx, sub.ID); err != nil {
					log.Printf("dispatch: delete invalid subscription %s: %v", sub.ID, err)
				} else {
					res.Deleted = true
				}
			}

			mu.Lock()
			result.Total++
			if res.Success {
				result.Sent++
			} else {
				result.Failed++
			}
			if res.Deleted {
				result.Deleted++
			}
			result.Results = append(result.Results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.metrics.RecordFanout(ctx, req.OrgID, result)
	if o.recorder != nil {
		o.recorder.Record(ctx, req.OrgID, req.UserID, req.Notification.Title,
			result.Sent, result.Failed, result.Deleted, result.Total)
	}
	return result, nil
}
