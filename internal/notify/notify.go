// Package notify delivers governance notifications over configurable
// channels with a global sliding-window rate limit.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/config"
)

// Message kinds.
const (
	KindApprovalNeeded = "approval_needed"
	KindEscalation     = "escalation"
	KindDecisionResult = "decision_result"
	KindDailySummary   = "daily_summary"
)

type Message struct {
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	ActionID  string         `json:"actionId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Channel delivers one message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// LogChannel writes notifications to the structured log. It is the
// default channel and can never fail.
type LogChannel struct {
	name   string
	logger *zap.Logger
}

func NewLogChannel(name string, logger *zap.Logger) *LogChannel {
	return &LogChannel{name: name, logger: logger}
}

func (c *LogChannel) Name() string { return c.name }

func (c *LogChannel) Send(_ context.Context, msg Message) error {
	c.logger.Info("notification",
		zap.String("kind", msg.Kind),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.String("action_id", msg.ActionID))
	return nil
}

// WebhookChannel POSTs the message as JSON to a configured URL.
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

func NewWebhookChannel(name, url string) *WebhookChannel {
	return &WebhookChannel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned status %d", c.name, resp.StatusCode)
	}
	return nil
}

// Manager fans messages out to all channels. Sends beyond the per-minute
// cap are dropped and logged, never queued. A failing channel does not
// prevent delivery to the others.
type Manager struct {
	mu       sync.Mutex
	channels []Channel
	sent     []time.Time // send timestamps within the sliding window
	max      int
	dropped  int
	now      func() time.Time
	logger   *zap.Logger
}

func NewManager(cfg config.NotifyConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		max:    cfg.MaxPerMinute,
		now:    time.Now,
		logger: logger,
	}
	for _, ch := range cfg.Channels {
		switch ch.Kind {
		case "webhook":
			m.channels = append(m.channels, NewWebhookChannel(ch.Name, ch.URL))
		default:
			m.channels = append(m.channels, NewLogChannel(ch.Name, logger))
		}
	}
	return m
}

// AddChannel registers an extra delivery channel.
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Notify delivers msg to every channel, subject to the rate limit.
// It returns false when the message was dropped.
func (m *Manager) Notify(ctx context.Context, msg Message) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now().UTC()
	}

	m.mu.Lock()
	if !m.allowLocked() {
		m.dropped++
		m.mu.Unlock()
		m.logger.Warn("notification dropped by rate limit",
			zap.String("kind", msg.Kind),
			zap.String("title", msg.Title))
		return false
	}
	channels := make([]Channel, len(m.channels))
	copy(channels, m.channels)
	m.mu.Unlock()

	for _, ch := range channels {
		if err := ch.Send(ctx, msg); err != nil {
			m.logger.Error("notification channel failed",
				zap.String("channel", ch.Name()),
				zap.String("kind", msg.Kind),
				zap.Error(err))
		}
	}
	return true
}

// allowLocked applies the one-minute sliding window. Caller holds the mutex.
func (m *Manager) allowLocked() bool {
	if m.max <= 0 {
		return true
	}
	cutoff := m.now().Add(-time.Minute)
	keep := m.sent[:0]
	for _, ts := range m.sent {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	m.sent = keep

	if len(m.sent) >= m.max {
		return false
	}
	m.sent = append(m.sent, m.now())
	return true
}

// Dropped returns how many messages the rate limit has discarded.
func (m *Manager) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
