package registry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mockRiskStore is a test helper.
type mockRiskStore struct {
	row *riskRow
	err error
}

func (m *mockRiskStore) LookupToolRisk(_ context.Context, _ string) (*riskRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.row, nil
}

// countingRiskStore tracks how many times LookupToolRisk is called.
type countingRiskStore struct {
	row       *riskRow
	err       error
	callCount *int
}

func (s *countingRiskStore) LookupToolRisk(_ context.Context, _ string) (*riskRow, error) {
	*s.callCount++
	if s.err != nil {
		return nil, s.err
	}
	return s.row, nil
}

func TestPostgresRegistry_CacheHit(t *testing.T) {
	callCount := 0
	store := &countingRiskStore{
		row: &riskRow{
			Tool:        "wallet_agent",
			Score:       90,
			Description: sql.NullString{String: "moves funds", Valid: true},
		},
		callCount: &callCount,
	}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	// First call — cache miss
	risk, err := reg.GetToolRisk(context.Background(), "wallet_agent")
	if err != nil {
		t.Fatal(err)
	}
	if risk.Score != 90 {
		t.Fatalf("expected score 90, got %v", risk.Score)
	}
	if risk.Description != "moves funds" {
		t.Fatalf("expected description, got %q", risk.Description)
	}
	if callCount != 1 {
		t.Fatalf("expected 1 DB call, got %d", callCount)
	}

	// Second call — cache hit
	risk, err = reg.GetToolRisk(context.Background(), "wallet_agent")
	if err != nil {
		t.Fatal(err)
	}
	if risk.Score != 90 {
		t.Fatalf("expected score 90, got %v", risk.Score)
	}
	if callCount != 1 {
		t.Fatalf("expected still 1 DB call (cache hit), got %d", callCount)
	}
}

func TestPostgresRegistry_ToolNotFound(t *testing.T) {
	store := &mockRiskStore{err: sql.ErrNoRows}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	risk, err := reg.GetToolRisk(context.Background(), "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if risk != nil {
		t.Fatal("expected nil for unregistered tool")
	}
}

func TestPostgresRegistry_NegativeCache(t *testing.T) {
	callCount := 0
	store := &countingRiskStore{err: sql.ErrNoRows, callCount: &callCount}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	risk, _ := reg.GetToolRisk(context.Background(), "nonexistent")
	if risk != nil {
		t.Fatal("expected nil")
	}
	if callCount != 1 {
		t.Fatalf("expected 1 DB call, got %d", callCount)
	}

	// Second call — negative cache hit (no DB call)
	risk, _ = reg.GetToolRisk(context.Background(), "nonexistent")
	if risk != nil {
		t.Fatal("expected nil from negative cache")
	}
	if callCount != 1 {
		t.Fatalf("expected still 1 DB call (negative cache hit), got %d", callCount)
	}
}

func TestPostgresRegistry_DBError(t *testing.T) {
	store := &mockRiskStore{err: context.DeadlineExceeded}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	_, err := reg.GetToolRisk(context.Background(), "tool")
	if err == nil {
		t.Fatal("expected error on DB failure")
	}
}

func TestStaticRegistry(t *testing.T) {
	reg := NewStaticRegistry(map[string]float64{"shell_agent": 70})

	risk, err := reg.GetToolRisk(context.Background(), "shell_agent")
	if err != nil || risk == nil || risk.Score != 70 {
		t.Fatalf("expected score 70, got %+v err=%v", risk, err)
	}

	risk, err = reg.GetToolRisk(context.Background(), "missing")
	if err != nil || risk != nil {
		t.Fatalf("expected nil for unknown tool, got %+v err=%v", risk, err)
	}
}

func TestLookupFunc_FallsBackToStatic(t *testing.T) {
	store := &mockRiskStore{err: context.DeadlineExceeded}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	lookup := LookupFunc(reg, map[string]float64{"browser_agent": 50})

	score, ok := lookup("browser_agent")
	if !ok || score != 50 {
		t.Fatalf("expected fallback score 50, got %v ok=%v", score, ok)
	}

	if _, ok := lookup("missing_everywhere"); ok {
		t.Fatal("expected miss for tool absent from DB and fallback")
	}
}

func TestLookupFunc_PrefersRegistry(t *testing.T) {
	store := &mockRiskStore{row: &riskRow{Tool: "deploy_agent", Score: 75}}
	reg := newPostgresRegistryWithStore(store, 30*time.Second, zap.NewNop())

	lookup := LookupFunc(reg, map[string]float64{"deploy_agent": 5})

	score, ok := lookup("deploy_agent")
	if !ok || score != 75 {
		t.Fatalf("expected registry score 75, got %v ok=%v", score, ok)
	}
}
