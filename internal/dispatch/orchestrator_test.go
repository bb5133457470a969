package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	notifdomain "push-delivery-plane/internal/notification/domain"
	subdomain "push-delivery-plane/internal/subscription/domain"
	"push-delivery-plane/internal/webpush"
)

// mockSubscriptionRepo implements subscriptionrepo.Repository for tests.
type mockSubscriptionRepo struct {
	mu      sync.Mutex
	subs    []*subdomain.PushSubscription
	listErr error
	deleted []string
	touched []string
}

func (m *mockSubscriptionRepo) ListEnabled(ctx context.Context, orgID string, userID *string) ([]*subdomain.PushSubscription, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*subdomain.PushSubscription, 0)
	for _, s := range m.subs {
		if !s.Enabled || s.OrgID != orgID {
			continue
		}
		if userID != nil && s.UserID != *userID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSubscriptionRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockSubscriptionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.subs = kept
	return nil
}

// newTestSub returns an enabled subscription with freshly generated,
// well-formed key material pointing at endpoint.
func newTestSub(t *testing.T, id, orgID, userID, endpoint string, prefs map[string]bool) *subdomain.PushSubscription {
	t.Helper()
	_, _, p256dh, auth := newTestSubscriberKeys(t)
	return &subdomain.PushSubscription{
		ID:          id,
		OrgID:       orgID,
		UserID:      userID,
		Endpoint:    endpoint,
		Keys:        subdomain.Keys{P256dh: p256dh, Auth: auth},
		Preferences: prefs,
		Enabled:     true,
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestSubscriberKeys(t *testing.T) (priv, pub string, p256dh, auth string) {
	t.Helper()
	privB64, pubB64, err := webpush.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys: %v", err)
	}
	// A subscriber key pair is just another P-256 pair; the auth secret is
	// 16 arbitrary bytes.
	return privB64, pubB64, pubB64, webpush.EncodeKey([]byte("0123456789abcdef"))
}

func newTestOrchestrator(t *testing.T, repo *mockSubscriptionRepo) *Orchestrator {
	t.Helper()
	d := newTestDispatcher(t)
	d.MaxAttempts = 1
	return NewOrchestrator(repo, d, nil, nil, 8)
}

func testNotification() *notifdomain.Payload {
	return &notifdomain.Payload{Title: "Claim update", Body: "Your claim moved to review"}
}

func TestOrchestrator_FanoutCompleteness(t *testing.T) {
	var calls atomic.Int32
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer relay.Close()

	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		newTestSub(t, "s1", "org1", "", relay.URL, map[string]bool{"claim_updates": true}),
		newTestSub(t, "s2", "org1", "", relay.URL, map[string]bool{"claim_updates": true}),
		newTestSub(t, "s3", "org1", "", relay.URL, map[string]bool{"claim_updates": true}),
		newTestSub(t, "s4", "org1", "", relay.URL, map[string]bool{"claim_updates": false}),
		newTestSub(t, "s5", "org2", "", relay.URL, map[string]bool{"claim_updates": true}),
	}}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{
		OrgID:            "org1",
		Notification:     testNotification(),
		PreferenceFilter: map[string]bool{"claim_updates": true},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Total != 3 || res.Sent != 3 || res.Failed != 0 {
		t.Errorf("aggregate = sent %d failed %d total %d, want 3/0/3", res.Sent, res.Failed, res.Total)
	}
	if len(res.Results) != 3 {
		t.Errorf("results length = %d, want 3", len(res.Results))
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("relay called %d times, want 3", n)
	}
	if len(repo.touched) != 3 {
		t.Errorf("touched %d subscriptions, want 3", len(repo.touched))
	}
}

func TestOrchestrator_Invalidation(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer relay.Close()

	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		newTestSub(t, "gone", "org1", "", relay.URL, nil),
	}}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Deleted != 1 || res.Failed != 1 || res.Sent != 0 {
		t.Errorf("aggregate = sent %d failed %d deleted %d, want 0/1/1", res.Sent, res.Failed, res.Deleted)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "gone" {
		t.Errorf("deleted = %v, want [gone]", repo.deleted)
	}

	// The removed subscription must not appear in a subsequent fan-out.
	res, err = o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()})
	if err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("second fan-out total = %d, want 0", res.Total)
	}
}

func TestOrchestrator_Isolation(t *testing.T) {
	okRelay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer okRelay.Close()
	release := make(chan struct{})
	hangingRelay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer hangingRelay.Close()
	defer close(release)

	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		newTestSub(t, "hanging", "org1", "", hangingRelay.URL, nil),
		newTestSub(t, "healthy", "org1", "", okRelay.URL, nil),
	}}
	o := newTestOrchestrator(t, repo)
	o.dispatcher.HTTPClient = &http.Client{Timeout: 100 * time.Millisecond}

	res, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Total != 2 || res.Sent != 1 || res.Failed != 1 {
		t.Errorf("aggregate = sent %d failed %d total %d, want 1/1/2", res.Sent, res.Failed, res.Total)
	}
	for _, r := range res.Results {
		if r.SubscriptionID == "healthy" && !r.Success {
			t.Error("healthy subscriber failed because a sibling hung")
		}
		if r.SubscriptionID == "hanging" && r.Success {
			t.Error("hanging subscriber reported success")
		}
	}
	if len(repo.deleted) != 0 {
		t.Errorf("transient failure deleted subscriptions: %v", repo.deleted)
	}
}

func TestOrchestrator_EncryptionFailureIsolated(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer relay.Close()

	bad := newTestSub(t, "bad-keys", "org1", "", relay.URL, nil)
	bad.Keys.P256dh = "corrupted"
	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		bad,
		newTestSub(t, "good", "org1", "", relay.URL, nil),
	}}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Total != 2 || res.Sent != 1 || res.Failed != 1 {
		t.Errorf("aggregate = sent %d failed %d total %d, want 1/1/2", res.Sent, res.Failed, res.Total)
	}
	// Malformed keys are not proof of unsubscription; only a relay 404/410
	// justifies deletion.
	if len(repo.deleted) != 0 {
		t.Errorf("encryption failure deleted subscriptions: %v", repo.deleted)
	}
}

func TestOrchestrator_PreferenceFailClosed(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("relay should not be called")
	}))
	defer relay.Close()

	// Enabled, but no preference entry at all for the filtered category.
	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		newTestSub(t, "no-prefs", "org1", "", relay.URL, nil),
	}}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{
		OrgID:            "org1",
		Notification:     testNotification(),
		PreferenceFilter: map[string]bool{"claim_updates": true},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("total = %d, want 0 (missing category is fail-closed)", res.Total)
	}
}

func TestOrchestrator_EmptySet(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org-without-subs", Notification: testNotification()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Sent != 0 || res.Failed != 0 || res.Deleted != 0 || res.Total != 0 {
		t.Errorf("aggregate = %+v, want all zero", res)
	}
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("results = %v, want empty slice", res.Results)
	}
}

func TestOrchestrator_UserScoped(t *testing.T) {
	var calls atomic.Int32
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer relay.Close()

	repo := &mockSubscriptionRepo{subs: []*subdomain.PushSubscription{
		newTestSub(t, "alice-phone", "org1", "alice", relay.URL, nil),
		newTestSub(t, "alice-laptop", "org1", "alice", relay.URL, nil),
		newTestSub(t, "bob-phone", "org1", "bob", relay.URL, nil),
	}}
	o := newTestOrchestrator(t, repo)

	res, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", UserID: "alice", Notification: testNotification()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Total != 2 || calls.Load() != 2 {
		t.Errorf("total = %d, relay calls = %d, want 2 and 2", res.Total, calls.Load())
	}
}

func TestOrchestrator_NotConfigured(t *testing.T) {
	o := NewOrchestrator(&mockSubscriptionRepo{}, &Dispatcher{}, nil, nil, 1)
	if _, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestOrchestrator_DirectoryError(t *testing.T) {
	repo := &mockSubscriptionRepo{listErr: errors.New("connection reset")}
	o := newTestOrchestrator(t, repo)
	if _, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: testNotification()}); !errors.Is(err, ErrDirectory) {
		t.Errorf("err = %v, want ErrDirectory", err)
	}
}

func TestOrchestrator_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, &mockSubscriptionRepo{})
	if _, err := o.Send(context.Background(), &FanoutRequest{Notification: testNotification()}); !errors.Is(err, ErrMissingOrg) {
		t.Errorf("missing org: err = %v, want ErrMissingOrg", err)
	}
	if _, err := o.Send(context.Background(), &FanoutRequest{OrgID: "org1", Notification: &notifdomain.Payload{Body: "b"}}); !errors.Is(err, notifdomain.ErrMissingTitle) {
		t.Errorf("missing title: err = %v, want ErrMissingTitle", err)
	}
}
