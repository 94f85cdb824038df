package queue

import (
	"testing"
	"time"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/engine"
)

func TestGetSummary_Aggregates(t *testing.T) {
	q, _ := newQueue(t, nil)

	d1 := decision(engine.RiskLow, action.UrgencyNormal, 100)
	d2 := decision(engine.RiskHigh, action.UrgencyNormal, 300)
	d2.Action.Category = action.CategoryDeployment
	d2.Action.Engine = "deploy"
	q.Add(d1)
	q.Add(d2)

	s := q.GetSummary()
	if s.Total != 2 {
		t.Fatalf("expected 2 pending, got %d", s.Total)
	}
	if s.ByCategory["trading"] != 1 || s.ByCategory["deployment"] != 1 {
		t.Fatalf("unexpected category counts: %v", s.ByCategory)
	}
	if s.ByRisk["low"] != 1 || s.ByRisk["high"] != 1 {
		t.Fatalf("unexpected risk counts: %v", s.ByRisk)
	}
	if s.TotalValue != 400 {
		t.Fatalf("expected total value 400, got %v", s.TotalValue)
	}
	// scores are level*20: (40 + 80) / 2
	if s.AverageScore != 60 {
		t.Fatalf("expected average score 60, got %v", s.AverageScore)
	}
}

func TestFilterPending_ByCategoryAndScore(t *testing.T) {
	q, _ := newQueue(t, nil)

	q.Add(decision(engine.RiskLow, action.UrgencyNormal, 0))    // trading, score 40
	q.Add(decision(engine.RiskHigh, action.UrgencyNormal, 0))   // trading, score 80
	d := decision(engine.RiskHigh, action.UrgencyNormal, 0)
	d.Action.Category = action.CategoryContent
	q.Add(d)

	got := q.FilterPending(Filter{Category: "trading", MinScore: 50})
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Decision.Assessment.Score != 80 {
		t.Fatalf("wrong request matched: %+v", got[0].Decision.Assessment)
	}
}

func TestApproveAllSafe_OnlySafeAndLow(t *testing.T) {
	q, _ := newQueue(t, nil)

	q.Add(decision(engine.RiskSafe, action.UrgencyNormal, 0))
	q.Add(decision(engine.RiskLow, action.UrgencyNormal, 0))
	medium := q.Add(decision(engine.RiskMedium, action.UrgencyNormal, 0))
	high := q.Add(decision(engine.RiskHigh, action.UrgencyNormal, 0))

	res := q.ApproveAllSafe("alice")
	if len(res.Succeeded) != 2 {
		t.Fatalf("expected 2 approvals, got %d", len(res.Succeeded))
	}
	if len(res.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", res.Failed)
	}

	if q.Get(medium.ID) == nil || q.Get(high.ID) == nil {
		t.Fatal("medium and high requests must remain pending")
	}
	if q.Get(medium.ID).Status != StatusPending {
		t.Fatal("unapproved requests must stay pending and unmodified")
	}
	if q.Size() != 2 {
		t.Fatalf("expected 2 remaining, got %d", q.Size())
	}
}

func TestRejectOlderThan(t *testing.T) {
	q, _ := newQueue(t, nil)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	q.st.now = func() time.Time { return base }
	old := q.Add(decision(engine.RiskMedium, action.UrgencyNormal, 0))

	q.st.now = func() time.Time { return base.Add(10 * time.Hour) }
	fresh := q.Add(decision(engine.RiskMedium, action.UrgencyNormal, 0))

	res := q.RejectOlderThan(6*time.Hour, "bob")
	if len(res.Succeeded) != 1 || res.Succeeded[0] != old.ID {
		t.Fatalf("expected only the old request rejected, got %+v", res)
	}
	if q.Get(fresh.ID) == nil {
		t.Fatal("fresh request must survive")
	}
}

func TestRejectFiltered_ReportsRace(t *testing.T) {
	q, _ := newQueue(t, nil)

	r := q.Add(decision(engine.RiskMedium, action.UrgencyNormal, 0))
	matches := q.FilterPending(Filter{})
	if len(matches) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(matches))
	}

	// Resolve out from under the batch: the bulk call reports failure
	// for the id rather than erroring.
	q.Approve(r.ID, "alice", "")

	res := q.RejectFiltered(Filter{}, "stale", "bob")
	if len(res.Succeeded) != 0 || len(res.Failed) != 0 {
		t.Fatalf("already-resolved request should not match, got %+v", res)
	}
}
