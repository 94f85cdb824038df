package registry

import (
	"sync"
	"testing"
	"time"
)

func TestCache_FreshHit(t *testing.T) {
	c := newRiskCache(30 * time.Second)
	c.Set("wallet_agent", &ToolRisk{Tool: "wallet_agent", Score: 90})

	result := c.Get("wallet_agent")
	if !result.Hit {
		t.Fatal("expected cache hit")
	}
	if result.NeedsRefresh {
		t.Fatal("expected fresh, got needs refresh")
	}
	if result.Risk.Score != 90 {
		t.Fatalf("expected score 90, got %v", result.Risk.Score)
	}
}

func TestCache_Miss(t *testing.T) {
	c := newRiskCache(30 * time.Second)
	result := c.Get("nonexistent")
	if result.Hit {
		t.Fatal("expected miss")
	}
	if result.Risk != nil {
		t.Fatal("expected nil risk on miss")
	}
}

func TestCache_NegativeCache(t *testing.T) {
	c := newRiskCache(30 * time.Second)
	c.Set("unknown_tool", nil) // negative cache

	result := c.Get("unknown_tool")
	if !result.Hit {
		t.Fatal("expected cache hit for negative cache")
	}
	if result.Risk != nil {
		t.Fatal("expected nil risk for negative cache")
	}
}

func TestCache_StaleHit_ReturnsValueAndSignalsRefresh(t *testing.T) {
	c := newRiskCache(1 * time.Millisecond)
	c.Set("search_agent", &ToolRisk{Tool: "search_agent", Score: 20})

	time.Sleep(5 * time.Millisecond)

	result := c.Get("search_agent")
	if !result.Hit {
		t.Fatal("expected stale hit")
	}
	if !result.NeedsRefresh {
		t.Fatal("expected needs refresh on stale")
	}
	if result.Risk.Score != 20 {
		t.Fatalf("expected score 20, got %v", result.Risk.Score)
	}
}

func TestCache_StaleHit_OnlyOneRefreshSignal(t *testing.T) {
	c := newRiskCache(1 * time.Millisecond)
	c.Set("search_agent", &ToolRisk{Tool: "search_agent", Score: 20})

	time.Sleep(5 * time.Millisecond)

	refreshCount := 0
	for i := 0; i < 10; i++ {
		if c.Get("search_agent").NeedsRefresh {
			refreshCount++
		}
	}
	if refreshCount != 1 {
		t.Fatalf("expected exactly 1 refresh signal, got %d", refreshCount)
	}
}

func TestCache_SetAfterStale_ResetsFreshness(t *testing.T) {
	c := newRiskCache(1 * time.Millisecond)
	c.Set("shell_agent", &ToolRisk{Tool: "shell_agent", Score: 70})

	time.Sleep(5 * time.Millisecond)

	c.Set("shell_agent", &ToolRisk{Tool: "shell_agent", Score: 75})

	result := c.Get("shell_agent")
	if !result.Hit {
		t.Fatal("expected hit after re-set")
	}
	if result.NeedsRefresh {
		t.Fatal("expected fresh after re-set")
	}
	if result.Risk.Score != 75 {
		t.Fatalf("expected updated score 75, got %v", result.Risk.Score)
	}
}

func TestCache_Delete(t *testing.T) {
	c := newRiskCache(30 * time.Second)
	c.Set("tool_a", &ToolRisk{Tool: "tool_a"})
	c.Delete("tool_a")

	if c.Get("tool_a").Hit {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newRiskCache(30 * time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set("tool", &ToolRisk{Tool: "tool"})
			c.Get("tool")
			c.Delete("tool")
		}()
	}
	wg.Wait()
}

func TestCache_ConcurrentStaleRefresh(t *testing.T) {
	c := newRiskCache(1 * time.Millisecond)
	c.Set("tool", &ToolRisk{Tool: "tool"})

	time.Sleep(5 * time.Millisecond)

	var refreshCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Get("tool").NeedsRefresh {
				mu.Lock()
				refreshCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if refreshCount != 1 {
		t.Fatalf("expected exactly 1 refresh across 50 goroutines, got %d", refreshCount)
	}
}

func BenchmarkRiskCache_Get_FreshHit(b *testing.B) {
	c := newRiskCache(30 * time.Second)
	c.Set("wallet_agent", &ToolRisk{Tool: "wallet_agent", Score: 90})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Get("wallet_agent")
	}
}
