package router

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/boundary"
	"github.com/triage-ai/warden/internal/config"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/events"
	"github.com/triage-ai/warden/internal/queue"
)

type fixture struct {
	router *Router
	queue  *queue.Queue
	bus    *events.Bus
	audit  *audit.Log
}

func newFixture(t *testing.T, autonomy int, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.AutonomyLevel = autonomy
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zap.NewNop()
	bus := events.NewBus(logger)
	log := audit.NewLog(cfg.Audit, logger)
	q := queue.New(cfg.Queue, bus, log, logger)
	classifier := engine.NewClassifier(cfg.Risk)
	checker := boundary.NewChecker(cfg.Boundaries, logger)

	return &fixture{
		router: New(cfg.AutonomyLevel, classifier, checker, q, bus, log, logger),
		queue:  q,
		bus:    bus,
		audit:  log,
	}
}

func newAction(category action.Category, value float64, reversible bool) *action.Action {
	return &action.Action{
		ID:       uuid.NewString(),
		Type:     "generic_op",
		Engine:   "test",
		Category: category,
		Metadata: action.Metadata{
			EstimatedValue: value,
			Reversible:     reversible,
			Urgency:        action.UrgencyNormal,
		},
	}
}

func TestRoute_TradeExceedingLimitQueues(t *testing.T) {
	f := newFixture(t, 2, nil)

	a := newAction(action.CategoryTrading, 5000, false)
	a.Type = "market_trade"
	d := f.router.Route(a)

	if d.Outcome != engine.OutcomeQueueApproval {
		t.Fatalf("expected queue_approval, got %s", d.Outcome)
	}
	if !strings.Contains(d.Reason, "exceeds") {
		t.Fatalf("reason should carry the violation, got %q", d.Reason)
	}
	if d.Assessment.Level < engine.RiskHigh {
		t.Fatalf("expected high or critical level, got %s", d.Assessment.Level)
	}
	if f.queue.Size() != 1 {
		t.Fatal("queued decision must land in the approval queue")
	}
}

func TestRoute_SafeContentAutoExecutes(t *testing.T) {
	f := newFixture(t, 2, nil)

	a := newAction(action.CategoryContent, 0, true)
	a.Type = "draft_summary"
	a.Metadata.Urgency = action.UrgencyLow
	d := f.router.Route(a)

	if d.Outcome != engine.OutcomeAutoExecute {
		t.Fatalf("expected auto_execute, got %s (%s)", d.Outcome, d.Reason)
	}
	if !d.RollbackAvailable {
		t.Fatal("rollbackAvailable must mirror reversibility")
	}
}

func TestRoute_CriticalEscalatesAtFullAutonomy(t *testing.T) {
	f := newFixture(t, 4, nil)

	a := newAction(action.CategoryTrading, 50_000, false)
	a.Type = "announce_trade"
	a.Metadata.Urgency = action.UrgencyCritical
	d := f.router.Route(a)

	if d.Assessment.Level != engine.RiskCritical {
		t.Fatalf("setup should produce critical level, got %s (score %v)",
			d.Assessment.Level, d.Assessment.Score)
	}
	if d.Outcome != engine.OutcomeEscalate {
		t.Fatalf("critical at level 4 must escalate, got %s", d.Outcome)
	}
}

func TestRoute_Level1AlwaysQueues(t *testing.T) {
	f := newFixture(t, 1, nil)

	a := newAction(action.CategoryContent, 0, true)
	a.Metadata.Urgency = action.UrgencyLow
	d := f.router.Route(a)

	if d.Outcome != engine.OutcomeQueueApproval {
		t.Fatalf("level 1 must queue everything, got %s", d.Outcome)
	}
}

func TestRoute_Level2TradingQueuesUnlessRecurring(t *testing.T) {
	f := newFixture(t, 2, nil)

	adhoc := newAction(action.CategoryTrading, 10, true)
	adhoc.Type = "market_trade"
	if d := f.router.Route(adhoc); d.Outcome != engine.OutcomeQueueApproval {
		t.Fatalf("ad-hoc low-risk trade must queue at level 2, got %s", d.Outcome)
	}

	dca := newAction(action.CategoryTrading, 10, true)
	dca.Type = "market_trade"
	dca.Params = map[string]any{"tags": []any{"dca"}}
	if d := f.router.Route(dca); d.Outcome != engine.OutcomeAutoExecute {
		t.Fatalf("DCA-tagged trade should auto-execute, got %s (%s)", d.Outcome, d.Reason)
	}
}

func TestRoute_Level3MediumAutoExecutes(t *testing.T) {
	f := newFixture(t, 3, nil)

	a := newAction(action.CategoryConfiguration, 50, false)
	d := f.router.Route(a)

	if d.Assessment.Level > engine.RiskMedium {
		t.Fatalf("setup should stay at or below medium, got %s", d.Assessment.Level)
	}
	if d.Outcome != engine.OutcomeAutoExecute {
		t.Fatalf("medium at level 3 should auto-execute, got %s (%s)", d.Outcome, d.Reason)
	}
}

func TestRoute_ProductionDeployEscalates(t *testing.T) {
	f := newFixture(t, 4, nil)

	a := newAction(action.CategoryDeployment, 0, true)
	a.Type = "deploy_service"
	a.Params = map[string]any{"target": "production"}
	d := f.router.Route(a)

	if d.Outcome != engine.OutcomeEscalate {
		t.Fatalf("production block must escalate, got %s (%s)", d.Outcome, d.Reason)
	}
}

func TestRoute_EmitsLifecycleEvents(t *testing.T) {
	f := newFixture(t, 2, nil)

	var made, queued int
	f.bus.Subscribe(events.DecisionMade, func(any) { made++ })
	f.bus.Subscribe(events.DecisionQueued, func(any) { queued++ })

	a := newAction(action.CategoryTrading, 5000, false)
	f.router.Route(a)

	if made != 1 || queued != 1 {
		t.Fatalf("expected made=1 queued=1, got %d/%d", made, queued)
	}
}

func TestRoute_BoundaryViolationEvent(t *testing.T) {
	f := newFixture(t, 2, nil)

	fired := 0
	f.bus.Subscribe(events.BoundaryViolation, func(any) { fired++ })

	f.router.Route(newAction(action.CategoryTrading, 5000, false))

	if fired != 1 {
		t.Fatalf("expected one boundary:violation event, got %d", fired)
	}
}

func TestRoute_AuditTrail(t *testing.T) {
	f := newFixture(t, 2, nil)

	a := newAction(action.CategoryContent, 0, true)
	a.Metadata.Urgency = action.UrgencyLow
	f.router.Route(a)

	entries := f.audit.Query("", a.ID, 0)
	types := make([]string, len(entries))
	for i, e := range entries {
		types[i] = e.Type
	}
	want := []string{audit.TypeActionReceived, audit.TypeRiskAssessed, audit.TypeDecisionMade}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
	if res := f.audit.VerifyIntegrity(); !res.Valid {
		t.Fatal("audit chain must verify after routing")
	}
}

func TestRecordExecution_AdvancesUsage(t *testing.T) {
	f := newFixture(t, 4, nil)

	a := newAction(action.CategoryTrading, 100, true)
	a.Params = map[string]any{"tags": []any{"scheduled"}}
	d := f.router.Route(a)
	if d.Outcome != engine.OutcomeAutoExecute {
		t.Fatalf("setup expects auto_execute, got %s (%s)", d.Outcome, d.Reason)
	}

	f.router.RecordExecution(d)

	entries := f.audit.Query(audit.TypeExecuted, a.ID, 0)
	if len(entries) != 1 {
		t.Fatalf("expected one executed entry, got %d", len(entries))
	}
}

func TestRoute_Deterministic(t *testing.T) {
	f := newFixture(t, 2, nil)

	var first engine.Outcome
	for i := 0; i < 5; i++ {
		a := newAction(action.CategoryContent, 0, true)
		a.ID = "fixed"
		a.Metadata.Urgency = action.UrgencyLow
		d := f.router.Route(a)
		if i == 0 {
			first = d.Outcome
		} else if d.Outcome != first {
			t.Fatalf("outcome changed across identical routes: %s vs %s", first, d.Outcome)
		}
	}
}
