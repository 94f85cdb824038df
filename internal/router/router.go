// Package router orchestrates classification and boundary checking into
// one final decision per action, using an autonomy-level routing table.
package router

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/boundary"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/events"
	"github.com/triage-ai/warden/internal/queue"
)

// Router is the single entry point for routed actions. Classification
// and boundary checking are synchronous and non-blocking; a queued
// decision is resolved later through the approval queue, never by
// blocking inside Route.
// maxTrackedDecisions bounds the in-memory decision index used to
// resolve execution reports by id.
const maxTrackedDecisions = 10_000

type Router struct {
	mu         sync.Mutex
	autonomy   int
	decisions  map[string]*engine.Decision
	order      []string // insertion order for FIFO eviction
	classifier *engine.Classifier
	checker    *boundary.Checker
	queue      *queue.Queue
	bus        *events.Bus
	audit      *audit.Log
	now        func() time.Time
	logger     *zap.Logger
}

func New(autonomyLevel int, classifier *engine.Classifier, checker *boundary.Checker, q *queue.Queue, bus *events.Bus, log *audit.Log, logger *zap.Logger) *Router {
	return &Router{
		autonomy:   autonomyLevel,
		decisions:  make(map[string]*engine.Decision),
		classifier: classifier,
		checker:    checker,
		queue:      q,
		bus:        bus,
		audit:      log,
		now:        time.Now,
		logger:     logger,
	}
}

// SetAutonomyLevel swaps the routing table tier at runtime.
func (r *Router) SetAutonomyLevel(level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	r.autonomy = level
}

func (r *Router) autonomyLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.autonomy
}

// Route produces the final decision for an action. It always returns
// immediately; queue_approval outcomes are enqueued for human review.
func (r *Router) Route(a *action.Action) *engine.Decision {
	r.audit.Append(audit.TypeActionReceived, a.ID, "", map[string]any{
		"type":     a.Type,
		"category": a.Category.String(),
		"engine":   a.Engine,
	})

	ra := r.classifier.Classify(a)
	assessment := &ra
	r.audit.Append(audit.TypeRiskAssessed, a.ID, "", map[string]any{
		"level": assessment.LevelName,
		"score": assessment.Score,
	})

	check := r.checker.Check(a, assessment.Level)
	if !check.Passed {
		r.audit.Append(audit.TypeBoundaryViolation, a.ID, "", map[string]any{
			"violations": check.Violations,
		})
		r.bus.Publish(events.BoundaryViolation, check)
	}

	outcome, reason := r.resolveOutcome(a, assessment, check)

	hats := engine.SixHats(a, assessment)
	d := &engine.Decision{
		ID:                uuid.NewString(),
		ActionID:          a.ID,
		Action:            a,
		Assessment:        assessment,
		Outcome:           outcome,
		Reason:            reason,
		Violations:        check.Violations,
		Warnings:          check.Warnings,
		Consensus:         &hats,
		RollbackAvailable: a.Metadata.Reversible,
		Timestamp:         r.now().UTC(),
	}

	r.audit.Append(audit.TypeDecisionMade, a.ID, d.ID, map[string]any{
		"outcome":   outcome.String(),
		"reason":    reason,
		"consensus": hats.Consensus,
		"hatsScore": hats.Score,
	})
	r.bus.Publish(events.DecisionMade, d)

	switch outcome {
	case engine.OutcomeAutoExecute:
		r.bus.Publish(events.DecisionAutoExecute, d)
	case engine.OutcomeQueueApproval:
		r.queue.Add(d)
		r.bus.Publish(events.DecisionQueued, d)
	case engine.OutcomeEscalate:
		r.bus.Publish(events.DecisionEscalated, d)
	case engine.OutcomeReject:
		r.bus.Publish(events.DecisionRejected, d)
	}

	r.track(d)

	r.logger.Info("action routed",
		zap.String("action_id", a.ID),
		zap.String("outcome", outcome.String()),
		zap.String("level", assessment.LevelName),
		zap.Float64("score", assessment.Score))
	return d
}

func (r *Router) track(d *engine.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[d.ID] = d
	r.order = append(r.order, d.ID)
	for len(r.order) > maxTrackedDecisions {
		delete(r.decisions, r.order[0])
		r.order = r.order[1:]
	}
}

// GetDecision returns a previously routed decision by id, or nil.
func (r *Router) GetDecision(id string) *engine.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decisions[id]
}

// resolveOutcome applies the routing table. Critical risk escalates
// before the boundary-failure branch so it cannot be downgraded to a
// reject by an unrelated violation string.
func (r *Router) resolveOutcome(a *action.Action, ra *engine.RiskAssessment, check boundary.Result) (engine.Outcome, string) {
	for _, v := range check.Violations {
		if strings.Contains(strings.ToLower(v), "production deployment") {
			return engine.OutcomeEscalate, v
		}
	}

	if ra.Level == engine.RiskCritical {
		return engine.OutcomeEscalate, "critical risk level requires human escalation"
	}

	if !check.Passed {
		for _, v := range check.Violations {
			lower := strings.ToLower(v)
			if strings.Contains(lower, "exceeds") ||
				strings.Contains(lower, "limit") ||
				strings.Contains(lower, "irreversible") {
				return engine.OutcomeQueueApproval, v
			}
		}
		return engine.OutcomeReject, strings.Join(check.Violations, "; ")
	}

	switch r.autonomyLevel() {
	case 1:
		return engine.OutcomeQueueApproval, "manual mode: all actions require approval"
	case 2:
		return r.boundedAutonomy(a, ra)
	case 3:
		switch ra.Level {
		case engine.RiskSafe, engine.RiskLow, engine.RiskMedium:
			return engine.OutcomeAutoExecute, "within supervised autonomy"
		default:
			return engine.OutcomeQueueApproval, "high risk requires approval"
		}
	default: // level 4
		return engine.OutcomeAutoExecute, "full autonomy"
	}
}

// boundedAutonomy is the level-2 table: safe/low auto-executes, except
// trading which queues unless the action is tagged as scheduled or DCA.
func (r *Router) boundedAutonomy(a *action.Action, ra *engine.RiskAssessment) (engine.Outcome, string) {
	switch ra.Level {
	case engine.RiskSafe, engine.RiskLow:
		if a.Category == action.CategoryTrading && !isRecurringTrade(a) {
			return engine.OutcomeQueueApproval, "ad-hoc trade requires approval at bounded autonomy"
		}
		return engine.OutcomeAutoExecute, "low risk within bounded autonomy"
	default:
		return engine.OutcomeQueueApproval, "elevated risk requires approval"
	}
}

func isRecurringTrade(a *action.Action) bool {
	tags, ok := a.Params["tags"].([]any)
	if !ok {
		return false
	}
	for _, t := range tags {
		s, ok := t.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(s) {
		case "scheduled", "dca":
			return true
		}
	}
	return false
}

// RecordExecution must be called after a successful auto-execute or
// approved action. It is the only path that advances usage counters.
func (r *Router) RecordExecution(d *engine.Decision) {
	r.checker.RecordUsage(d.Action)
	r.audit.Append(audit.TypeExecuted, d.ActionID, d.ID, map[string]any{
		"outcome": d.Outcome.String(),
	})
}

// RecordExecutionFailure records a failed execution attempt.
func (r *Router) RecordExecutionFailure(d *engine.Decision, cause string) {
	r.audit.Append(audit.TypeExecutionFailed, d.ActionID, d.ID, map[string]any{
		"error": cause,
	})
}

// RecordRollback records a compensating rollback of an executed action.
func (r *Router) RecordRollback(d *engine.Decision, reason string) {
	r.audit.Append(audit.TypeRolledBack, d.ActionID, d.ID, map[string]any{
		"reason": reason,
	})
}
