// Package schedule implements a tiered preemptive task queue. Three fixed
// tiers, strict FIFO within a tier, and a preemption signal that wakes
// waiters the moment a critical task is enqueued. All queue mutation is
// serialized through the Scheduler; callers never touch the queues.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tier is a scheduling priority class.
type Tier int

const (
	TierCritical Tier = iota
	TierUserInitiated
	TierBackground
	tierCount
)

// String returns the tier name used in audit events.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierUserInitiated:
		return "userInitiated"
	case TierBackground:
		return "background"
	default:
		return "unknown"
	}
}

// Task is one queued unit of work. The payload is opaque to the scheduler.
type Task struct {
	ID         string
	Tier       Tier
	EnqueuedAt time.Time
	Payload    any
}

// NewTask creates a task with a fresh ID for the given tier.
func NewTask(tier Tier, payload any) Task {
	return Task{
		ID:      uuid.NewString(),
		Tier:    tier,
		Payload: payload,
	}
}

// Scheduler owns the tier queues.
type Scheduler struct {
	mu      sync.Mutex
	queues  [tierCount][]Task
	waiters []chan struct{}
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Enqueue appends a task to its tier queue. A critical enqueue wakes every
// party currently suspended in WaitForPreemption.
func (s *Scheduler) Enqueue(task Task) {
	if task.Tier < TierCritical || task.Tier >= tierCount {
		task.Tier = TierBackground
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	s.mu.Lock()
	s.queues[task.Tier] = append(s.queues[task.Tier], task)
	var wake []chan struct{}
	if task.Tier == TierCritical {
		wake = s.waiters
		s.waiters = nil
	}
	s.mu.Unlock()

	for _, ch := range wake {
		close(ch)
	}
}

// Dequeue pops the head of the first non-empty queue in priority order.
// Never scans a lower tier while a higher one is non-empty. Returns false
// when every tier is empty.
func (s *Scheduler) Dequeue() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tier := TierCritical; tier < tierCount; tier++ {
		q := s.queues[tier]
		if len(q) == 0 {
			continue
		}
		task := q[0]
		s.queues[tier] = q[1:]
		return task, true
	}
	return Task{}, false
}

// Take removes the task with the given ID from whichever tier queue holds
// it. Unlike Dequeue it never touches another caller's task: a finished
// execution retires exactly the task it enqueued. Returns false when the
// ID is not queued.
func (s *Scheduler) Take(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tier := TierCritical; tier < tierCount; tier++ {
		for i, task := range s.queues[tier] {
			if task.ID == id {
				s.queues[tier] = append(s.queues[tier][:i], s.queues[tier][i+1:]...)
				return task, true
			}
		}
	}
	return Task{}, false
}

// Len reports the total number of queued tasks across all tiers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queues {
		n += len(q)
	}
	return n
}

// WaitForPreemption returns immediately if a critical task is already
// queued, otherwise it suspends until the next critical enqueue or until
// ctx is cancelled.
func (s *Scheduler) WaitForPreemption(ctx context.Context) error {
	s.mu.Lock()
	if len(s.queues[TierCritical]) > 0 {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		s.removeWaiter(ch)
		return ctx.Err()
	}
}

func (s *Scheduler) removeWaiter(ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// DrainAll atomically empties every tier and returns the removed tasks in
// priority order. Used for shutdown and reset.
func (s *Scheduler) DrainAll() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for tier := TierCritical; tier < tierCount; tier++ {
		out = append(out, s.queues[tier]...)
		s.queues[tier] = nil
	}
	return out
}
