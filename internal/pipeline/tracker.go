package pipeline

import (
	"sort"
	"sync"
)

// Tracker keeps the most recent runs in memory for status queries.
type Tracker struct {
	mu    sync.RWMutex
	limit int
	runs  map[string]*Run
}

// NewTracker keeps up to limit runs; limit <= 0 keeps 50.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = 50
	}
	return &Tracker{limit: limit, runs: make(map[string]*Run)}
}

// Put stores a copy of run, evicting the oldest run when full.
func (t *Tracker) Put(run *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := *run
	cp.Jobs = make([]*FileJob, len(run.Jobs))
	for i, j := range run.Jobs {
		jc := *j
		cp.Jobs[i] = &jc
	}
	t.runs[run.ID] = &cp

	if len(t.runs) <= t.limit {
		return
	}
	var oldest *Run
	for _, r := range t.runs {
		if oldest == nil || r.StartedAt.Before(oldest.StartedAt) {
			oldest = r
		}
	}
	delete(t.runs, oldest.ID)
}

// Get returns the run with id.
func (t *Tracker) Get(id string) (*Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[id]
	return r, ok
}

// List returns the tracked runs, newest first.
func (t *Tracker) List() []*Run {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Run, 0, len(t.runs))
	for _, r := range t.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
