package schedule

import (
	"context"
	"testing"
	"time"
)

func TestDequeuePriorityOrder(t *testing.T) {
	s := New()
	s.Enqueue(NewTask(TierBackground, "bg"))
	s.Enqueue(NewTask(TierCritical, "crit1"))
	s.Enqueue(NewTask(TierUserInitiated, "user"))
	s.Enqueue(NewTask(TierCritical, "crit2"))

	want := []string{"crit1", "crit2", "user", "bg"}
	for _, payload := range want {
		task, ok := s.Dequeue()
		if !ok {
			t.Fatalf("queue empty, wanted %q", payload)
		}
		if task.Payload != payload {
			t.Errorf("got %v, want %q", task.Payload, payload)
		}
	}
	if _, ok := s.Dequeue(); ok {
		t.Error("expected empty queue")
	}
}

func TestDequeueFIFOWithinTier(t *testing.T) {
	s := New()
	for _, p := range []string{"a", "b", "c"} {
		s.Enqueue(NewTask(TierUserInitiated, p))
	}
	for _, want := range []string{"a", "b", "c"} {
		task, _ := s.Dequeue()
		if task.Payload != want {
			t.Errorf("got %v, want %q", task.Payload, want)
		}
	}
}

func TestTakeRemovesOnlyOwnTask(t *testing.T) {
	s := New()
	crit := NewTask(TierCritical, "crit")
	bg := NewTask(TierBackground, "bg")
	s.Enqueue(crit)
	s.Enqueue(bg)

	// Retiring the background task must leave the queued critical alone.
	got, ok := s.Take(bg.ID)
	if !ok || got.ID != bg.ID {
		t.Fatalf("take = %+v ok=%v", got, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	head, ok := s.Dequeue()
	if !ok || head.ID != crit.ID {
		t.Errorf("head = %+v, want the critical task", head)
	}

	// Taking an ID that is no longer queued is a no-op.
	if _, ok := s.Take(bg.ID); ok {
		t.Error("expected miss for already-taken ID")
	}
}

func TestWaitForPreemptionImmediate(t *testing.T) {
	s := New()
	s.Enqueue(NewTask(TierCritical, nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.WaitForPreemption(ctx); err != nil {
		t.Fatalf("expected immediate return, got %v", err)
	}
}

func TestWaitForPreemptionWakesOnCriticalEnqueue(t *testing.T) {
	s := New()
	done := make(chan error, 1)
	go func() {
		done <- s.WaitForPreemption(context.Background())
	}()

	// Non-critical enqueues must not wake the waiter.
	s.Enqueue(NewTask(TierBackground, nil))
	s.Enqueue(NewTask(TierUserInitiated, nil))
	select {
	case <-done:
		t.Fatal("woken by non-critical enqueue")
	case <-time.After(50 * time.Millisecond):
	}

	s.Enqueue(NewTask(TierCritical, nil))
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by critical enqueue")
	}
}

func TestWaitForPreemptionCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.WaitForPreemption(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}
}

func TestDrainAll(t *testing.T) {
	s := New()
	s.Enqueue(NewTask(TierBackground, "bg"))
	s.Enqueue(NewTask(TierCritical, "crit"))
	s.Enqueue(NewTask(TierUserInitiated, "user"))

	drained := s.DrainAll()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained tasks, got %d", len(drained))
	}
	// Priority order: critical first, background last.
	if drained[0].Payload != "crit" || drained[2].Payload != "bg" {
		t.Errorf("wrong drain order: %v", drained)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty scheduler, got %d", s.Len())
	}
}
