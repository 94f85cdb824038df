package queue

import (
	"sync"
	"time"
)

// state is the mutex-guarded pending set. Kept separate from Queue so
// tests can pin the clock without touching the public surface.
type state struct {
	mu    sync.Mutex
	items map[string]*Request
	now   func() time.Time
}

func newState() *state {
	return &state{
		items: make(map[string]*Request),
		now:   time.Now,
	}
}

// evictLowestLocked removes and returns the lowest-priority pending
// request. Caller holds the mutex.
func (s *state) evictLowestLocked() *Request {
	var lowest *Request
	for _, r := range s.items {
		if lowest == nil || r.Priority < lowest.Priority {
			lowest = r
		}
	}
	if lowest == nil {
		return nil
	}
	lowest.Status = StatusExpired
	delete(s.items, lowest.ID)
	return lowest
}
