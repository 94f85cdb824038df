package queue

import (
	"time"

	"github.com/triage-ai/warden/internal/engine"
)

// Summary aggregates the pending set for review dashboards.
type Summary struct {
	Total        int            `json:"total"`
	ByCategory   map[string]int `json:"byCategory"`
	ByRisk       map[string]int `json:"byRisk"`
	ByEngine     map[string]int `json:"byEngine"`
	TotalValue   float64        `json:"totalValue"`
	AverageScore float64        `json:"averageScore"`
	OldestAge    time.Duration  `json:"oldestAge"`
}

// Filter selects pending requests for bulk operations. Zero values
// match everything.
type Filter struct {
	Category string        `json:"category,omitempty"`
	Level    string        `json:"level,omitempty"`
	Engine   string        `json:"engine,omitempty"`
	MinScore float64       `json:"minScore,omitempty"`
	MaxScore float64       `json:"maxScore,omitempty"`
	MinAge   time.Duration `json:"minAge,omitempty"`
}

func (f Filter) matches(r *Request, now time.Time) bool {
	d := r.Decision
	if f.Category != "" && d.Action.Category.String() != f.Category {
		return false
	}
	if f.Level != "" && d.Assessment.Level.String() != f.Level {
		return false
	}
	if f.Engine != "" && d.Action.Engine != f.Engine {
		return false
	}
	if f.MinScore > 0 && d.Assessment.Score < f.MinScore {
		return false
	}
	if f.MaxScore > 0 && d.Assessment.Score > f.MaxScore {
		return false
	}
	if f.MinAge > 0 && now.Sub(r.CreatedAt) < f.MinAge {
		return false
	}
	return true
}

// BatchResult reports per-item success and failure of a bulk mutation.
type BatchResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// GetSummary aggregates current pending requests.
func (q *Queue) GetSummary() Summary {
	pending := q.GetPending()
	now := q.st.now()

	s := Summary{
		Total:      len(pending),
		ByCategory: make(map[string]int),
		ByRisk:     make(map[string]int),
		ByEngine:   make(map[string]int),
	}
	var scoreSum float64
	for _, r := range pending {
		d := r.Decision
		s.ByCategory[d.Action.Category.String()]++
		s.ByRisk[d.Assessment.Level.String()]++
		s.ByEngine[d.Action.Engine]++
		s.TotalValue += d.Action.Metadata.EstimatedValue
		scoreSum += d.Assessment.Score
		if age := now.Sub(r.CreatedAt); age > s.OldestAge {
			s.OldestAge = age
		}
	}
	if len(pending) > 0 {
		s.AverageScore = scoreSum / float64(len(pending))
	}
	return s
}

// FilterPending returns pending requests matching f, priority ordered.
func (q *Queue) FilterPending(f Filter) []*Request {
	now := q.st.now()
	var out []*Request
	for _, r := range q.GetPending() {
		if f.matches(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// ApproveFiltered approves every pending request matching f.
func (q *Queue) ApproveFiltered(f Filter, reviewer, feedback string) BatchResult {
	var res BatchResult
	for _, r := range q.FilterPending(f) {
		if q.Approve(r.ID, reviewer, feedback) != nil {
			res.Succeeded = append(res.Succeeded, r.ID)
		} else {
			res.Failed = append(res.Failed, r.ID)
		}
	}
	return res
}

// RejectFiltered rejects every pending request matching f.
func (q *Queue) RejectFiltered(f Filter, reason, reviewer string) BatchResult {
	var res BatchResult
	for _, r := range q.FilterPending(f) {
		if q.Reject(r.ID, reason, reviewer) != nil {
			res.Succeeded = append(res.Succeeded, r.ID)
		} else {
			res.Failed = append(res.Failed, r.ID)
		}
	}
	return res
}

// ApproveAllSafe approves only requests assessed safe or low risk.
func (q *Queue) ApproveAllSafe(reviewer string) BatchResult {
	var res BatchResult
	for _, r := range q.GetPending() {
		level := r.Decision.Assessment.Level
		if level != engine.RiskSafe && level != engine.RiskLow {
			continue
		}
		if q.Approve(r.ID, reviewer, "bulk approve: low risk") != nil {
			res.Succeeded = append(res.Succeeded, r.ID)
		} else {
			res.Failed = append(res.Failed, r.ID)
		}
	}
	return res
}

// RejectOlderThan rejects every pending request older than age.
func (q *Queue) RejectOlderThan(age time.Duration, reviewer string) BatchResult {
	return q.RejectFiltered(Filter{MinAge: age}, "bulk reject: stale request", reviewer)
}
