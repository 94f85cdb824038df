// Package queue holds decisions awaiting human review in a bounded,
// priority-ordered set with time-based escalation and expiration.
package queue

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/config"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/events"
)

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

// Request wraps a queued decision awaiting review.
type Request struct {
	ID        string           `json:"id"`
	Decision  *engine.Decision `json:"decision"`
	Priority  float64          `json:"priority"`
	Urgency   action.Urgency   `json:"urgency"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`

	ReviewedBy string     `json:"reviewedBy,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`

	escalated bool // escalation already notified; sweep is idempotent
}

// Queue is the bounded pending set. All access is serialized through
// one mutex shared by the call path and the background sweep; the mutex
// lives in the embedded state rather than per method group so a
// sweep-triggered eviction and a concurrent approve of the same id
// cannot interleave.
type Queue struct {
	st     *state
	cfg    config.QueueConfig
	bus    *events.Bus
	audit  *audit.Log
	logger *zap.Logger
}

func New(cfg config.QueueConfig, bus *events.Bus, log *audit.Log, logger *zap.Logger) *Queue {
	return &Queue{
		st:     newState(),
		cfg:    cfg,
		bus:    bus,
		audit:  log,
		logger: logger,
	}
}

// Add enqueues a decision for review. When the insert pushes the queue
// past capacity, the lowest-priority pending request is evicted and
// marked expired. The new request itself is a candidate: a low-priority
// arrival into a full queue of higher priorities is evicted immediately.
func (q *Queue) Add(d *engine.Decision) *Request {
	now := q.st.now()
	r := &Request{
		ID:        uuid.NewString(),
		Decision:  d,
		Priority:  priorityFor(d),
		Urgency:   d.Action.Metadata.Urgency,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(q.cfg.ExpireAfter),
	}

	q.st.mu.Lock()
	q.st.items[r.ID] = r
	var evicted *Request
	if len(q.st.items) > q.cfg.MaxPendingItems {
		evicted = q.st.evictLowestLocked()
	}
	q.st.mu.Unlock()

	if evicted != nil {
		q.logger.Warn("approval queue at capacity, evicted lowest priority",
			zap.String("evicted_id", evicted.ID),
			zap.Float64("priority", evicted.Priority))
		q.audit.Append(audit.TypeRejected, evicted.Decision.ActionID, evicted.Decision.ID,
			map[string]any{"reason": "evicted at capacity", "requestId": evicted.ID})
		q.bus.Publish(events.ItemExpired, evicted)
	}

	q.audit.Append(audit.TypeQueuedApproval, d.ActionID, d.ID,
		map[string]any{"requestId": r.ID, "priority": r.Priority})
	q.bus.Publish(events.ItemAdded, r)
	q.bus.Publish(events.QueueChanged, q.Size())
	return r
}

// Approve resolves a pending request. A nil return means the id was not
// found, which is a normal race with background expiration.
func (q *Queue) Approve(id, reviewer, feedback string) *Request {
	r := q.resolve(id, StatusApproved, reviewer, feedback)
	if r == nil {
		q.logger.Warn("approve on unknown request", zap.String("request_id", id))
		return nil
	}

	r.Decision.Outcome = engine.OutcomeAutoExecute
	r.Decision.ApprovedBy = reviewer
	at := *r.ReviewedAt
	r.Decision.ApprovedAt = &at

	q.audit.Append(audit.TypeApproved, r.Decision.ActionID, r.Decision.ID,
		map[string]any{"reviewer": reviewer, "feedback": feedback})
	q.bus.Publish(events.ItemApproved, r)
	q.bus.Publish(events.QueueChanged, q.Size())
	return r
}

// Reject resolves a pending request negatively. Nil on unknown id.
func (q *Queue) Reject(id, reason, reviewer string) *Request {
	r := q.resolve(id, StatusRejected, reviewer, reason)
	if r == nil {
		q.logger.Warn("reject on unknown request", zap.String("request_id", id))
		return nil
	}

	r.Decision.Outcome = engine.OutcomeReject
	r.Decision.Reason = reason

	q.audit.Append(audit.TypeRejected, r.Decision.ActionID, r.Decision.ID,
		map[string]any{"reviewer": reviewer, "reason": reason})
	q.bus.Publish(events.ItemRejected, r)
	q.bus.Publish(events.QueueChanged, q.Size())
	return r
}

func (q *Queue) resolve(id, status, reviewer, feedback string) *Request {
	q.st.mu.Lock()
	defer q.st.mu.Unlock()

	r, ok := q.st.items[id]
	if !ok || r.Status != StatusPending {
		return nil
	}
	delete(q.st.items, id)

	now := q.st.now()
	r.Status = status
	r.ReviewedBy = reviewer
	r.Feedback = feedback
	r.ReviewedAt = &now
	return r
}

// Get returns the pending request with the given id, or nil.
func (q *Queue) Get(id string) *Request {
	q.st.mu.Lock()
	defer q.st.mu.Unlock()
	return q.st.items[id]
}

// GetPending returns pending requests sorted by descending priority.
// Ties break on older-first.
func (q *Queue) GetPending() []*Request {
	q.st.mu.Lock()
	out := make([]*Request, 0, len(q.st.items))
	for _, r := range q.st.items {
		out = append(out, r)
	}
	q.st.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (q *Queue) Size() int {
	q.st.mu.Lock()
	defer q.st.mu.Unlock()
	return len(q.st.items)
}

// RunSweeper runs the periodic maintenance sweep until ctx is done.
func (q *Queue) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Sweep()
		}
	}
}

// Sweep expires requests past their deadline, escalates overdue or
// critical ones, and auto-rejects requests past the long threshold.
func (q *Queue) Sweep() {
	now := q.st.now()

	q.st.mu.Lock()
	var expired, escalate, autoReject []*Request
	for _, r := range q.st.items {
		age := now.Sub(r.CreatedAt)
		switch {
		case now.After(r.ExpiresAt):
			r.Status = StatusExpired
			delete(q.st.items, r.ID)
			expired = append(expired, r)
		case age > q.cfg.AutoRejectAfter:
			r.Status = StatusRejected
			delete(q.st.items, r.ID)
			autoReject = append(autoReject, r)
		case !r.escalated && (age > q.cfg.EscalateAfter || r.Decision.Assessment.Level == engine.RiskCritical):
			r.escalated = true
			escalate = append(escalate, r)
		}
	}
	q.st.mu.Unlock()

	for _, r := range expired {
		q.audit.Append(audit.TypeRejected, r.Decision.ActionID, r.Decision.ID,
			map[string]any{"reason": "expired", "requestId": r.ID})
		q.bus.Publish(events.ItemExpired, r)
	}
	for _, r := range autoReject {
		r.Decision.Outcome = engine.OutcomeReject
		r.Decision.Reason = "auto-rejected: pending past review window"
		q.audit.Append(audit.TypeRejected, r.Decision.ActionID, r.Decision.ID,
			map[string]any{"reason": "auto-rejected", "requestId": r.ID})
		q.bus.Publish(events.ItemRejected, r)
	}
	for _, r := range escalate {
		q.audit.Append(audit.TypeEscalated, r.Decision.ActionID, r.Decision.ID,
			map[string]any{"requestId": r.ID, "age": now.Sub(r.CreatedAt).String()})
		q.bus.Publish(events.ItemEscalated, r)
	}

	if len(expired)+len(autoReject) > 0 {
		q.bus.Publish(events.QueueChanged, q.Size())
	}
}

// priorityFor computes urgencyWeight*10 + riskLevelWeight + value/10
// capped at 10 for the value term.
func priorityFor(d *engine.Decision) float64 {
	value := d.Action.Metadata.EstimatedValue / 10
	if value > 10 {
		value = 10
	}
	return float64(urgencyWeight(d.Action.Metadata.Urgency))*10 +
		float64(d.Assessment.Level) + value
}

func urgencyWeight(u action.Urgency) int {
	switch u {
	case action.UrgencyLow:
		return 1
	case action.UrgencyHigh:
		return 3
	case action.UrgencyCritical:
		return 4
	default:
		return 2
	}
}
