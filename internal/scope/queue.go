package scope

import (
	"slices"
	"sync"
)

// Queue coalesces change notifications that arrive while a pass runs.
// A pending full request absorbs every single-file request.
type Queue struct {
	mu      sync.Mutex
	full    *Scope
	paths   []string
	seen    map[string]struct{}
	decider *Decider
	ready   chan struct{}
}

// NewQueue returns an empty queue that classifies paths with d.
func NewQueue(d *Decider) *Queue {
	return &Queue{
		decider: d,
		seen:    make(map[string]struct{}),
		ready:   make(chan struct{}, 1),
	}
}

// Ready is signalled (without blocking) whenever work is added.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Add classifies changed and records it.
func (q *Queue) Add(changed string) Scope {
	s := q.decider.Decide(changed)
	q.Push(s)
	return s
}

// Push records an already decided scope.
func (q *Queue) Push(s Scope) {
	q.mu.Lock()
	if s.IsAll() {
		if q.full == nil {
			q.full = &s
		}
		q.paths = nil
		clear(q.seen)
	} else if q.full == nil {
		if _, dup := q.seen[s.Path]; !dup {
			q.seen[s.Path] = struct{}{}
			q.paths = append(q.paths, s.Path)
		}
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain returns and clears the outstanding work. A full rebuild is
// returned as a single All scope; otherwise one Single scope per
// distinct path, in arrival order.
func (q *Queue) Drain() []Scope {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.full != nil {
		s := *q.full
		q.full = nil
		return []Scope{s}
	}
	out := make([]Scope, 0, len(q.paths))
	for _, p := range q.paths {
		out = append(out, Single(p))
	}
	q.paths = nil
	clear(q.seen)
	return slices.Clip(out)
}

// Pending reports whether Drain would return anything.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.full != nil || len(q.paths) > 0
}
