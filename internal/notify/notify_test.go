package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/config"
)

type captureChannel struct {
	mu   sync.Mutex
	got  []Message
	fail bool
}

func (c *captureChannel) Name() string { return "capture" }

func (c *captureChannel) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("channel down")
	}
	c.got = append(c.got, msg)
	return nil
}

func TestNotify_DeliversToAllChannels(t *testing.T) {
	m := NewManager(config.NotifyConfig{MaxPerMinute: 10}, zap.NewNop())
	a := &captureChannel{}
	b := &captureChannel{}
	m.AddChannel(a)
	m.AddChannel(b)

	ok := m.Notify(context.Background(), Message{Kind: KindApprovalNeeded, Title: "review needed"})
	if !ok {
		t.Fatal("expected delivery")
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("expected both channels to receive, got %d/%d", len(a.got), len(b.got))
	}
}

func TestNotify_FailureIsolated(t *testing.T) {
	m := NewManager(config.NotifyConfig{MaxPerMinute: 10}, zap.NewNop())
	bad := &captureChannel{fail: true}
	good := &captureChannel{}
	m.AddChannel(bad)
	m.AddChannel(good)

	m.Notify(context.Background(), Message{Kind: KindEscalation, Title: "escalate"})

	if len(good.got) != 1 {
		t.Fatal("healthy channel should still deliver when another fails")
	}
}

func TestNotify_RateLimitDrops(t *testing.T) {
	m := NewManager(config.NotifyConfig{MaxPerMinute: 3}, zap.NewNop())
	ch := &captureChannel{}
	m.AddChannel(ch)

	delivered := 0
	for i := 0; i < 10; i++ {
		if m.Notify(context.Background(), Message{Kind: KindDecisionResult}) {
			delivered++
		}
	}

	if delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %d", delivered)
	}
	if m.Dropped() != 7 {
		t.Fatalf("expected 7 dropped, got %d", m.Dropped())
	}
}

func TestNotify_WindowSlides(t *testing.T) {
	m := NewManager(config.NotifyConfig{MaxPerMinute: 1}, zap.NewNop())
	ch := &captureChannel{}
	m.AddChannel(ch)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	if !m.Notify(context.Background(), Message{Kind: KindDailySummary}) {
		t.Fatal("first send should pass")
	}
	if m.Notify(context.Background(), Message{Kind: KindDailySummary}) {
		t.Fatal("second send inside the window should drop")
	}

	m.now = func() time.Time { return base.Add(61 * time.Second) }
	if !m.Notify(context.Background(), Message{Kind: KindDailySummary}) {
		t.Fatal("send after the window slides should pass")
	}
}

func TestWebhookChannel_Posts(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("hook", srv.URL)
	err := ch.Send(context.Background(), Message{Kind: KindApprovalNeeded, ActionID: "act-1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Kind != KindApprovalNeeded || got.ActionID != "act-1" {
		t.Fatalf("unexpected webhook payload: %+v", got)
	}
}

func TestWebhookChannel_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("hook", srv.URL)
	if err := ch.Send(context.Background(), Message{Kind: KindEscalation}); err == nil {
		t.Fatal("expected error on 502 response")
	}
}
