package arbiter

import (
	"context"
	"testing"
)

// stubScorer returns fixed scores so each gate can be exercised alone.
type stubScorer struct {
	similarity float64
	overlap    float64
	modifier   bool
}

func (s stubScorer) Similarity(a, b string) float64    { return s.similarity }
func (s stubScorer) EntityOverlap(n, o string) float64 { return s.overlap }
func (s stubScorer) HasModifier(text string) bool      { return s.modifier }

func evaluate(t *testing.T, s Scorer) Decision {
	t.Helper()
	a := New(s, Thresholds{})
	d, err := a.Evaluate(context.Background(), "new intent", "old intent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestLowSimilarityPreempts(t *testing.T) {
	// Below the similarity floor, even perfect overlap must not refine.
	d := evaluate(t, stubScorer{similarity: 0.3, overlap: 1.0, modifier: true})
	if d != Preempt {
		t.Errorf("got %s, want preempt", d)
	}
}

func TestHighOverlapRefines(t *testing.T) {
	d := evaluate(t, stubScorer{similarity: 0.8, overlap: 0.9})
	if d != Refine {
		t.Errorf("got %s, want refine", d)
	}
}

func TestModifierRefines(t *testing.T) {
	d := evaluate(t, stubScorer{similarity: 0.8, overlap: 0.2, modifier: true})
	if d != Refine {
		t.Errorf("got %s, want refine", d)
	}
}

func TestRelatedButDifferentEntitiesPreempts(t *testing.T) {
	// "show me weather" → "show me stocks": similar shape, different nouns,
	// no continuation language.
	d := evaluate(t, stubScorer{similarity: 0.8, overlap: 0.2, modifier: false})
	if d != Preempt {
		t.Errorf("got %s, want preempt", d)
	}
}

func TestThresholdBoundaries(t *testing.T) {
	// Exactly at the refinement threshold refines; exactly at the
	// preemption threshold passes gate 1.
	d := evaluate(t, stubScorer{similarity: 0.6, overlap: 0.7})
	if d != Refine {
		t.Errorf("got %s, want refine at exact thresholds", d)
	}
}

func TestCancellationBeforeGates(t *testing.T) {
	a := New(stubScorer{similarity: 0.9, overlap: 0.9}, Thresholds{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Evaluate(ctx, "x", "y"); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestLexicalScorerModifiers(t *testing.T) {
	var s LexicalScorer
	if !s.HasModifier("actually make it blue") {
		t.Error("expected modifier 'actually'")
	}
	if !s.HasModifier("show stocks instead") {
		t.Error("expected modifier 'instead'")
	}
	if s.HasModifier("nothing notable here") {
		t.Error("'no' must match whole tokens only")
	}
}

func TestLexicalScorerOverlap(t *testing.T) {
	var s LexicalScorer
	got := s.EntityOverlap("remind me about the dentist appointment", "dentist appointment tomorrow")
	// Old tokens: dentist, appointment, tomorrow → 2 of 3 persist.
	if got < 0.6 || got > 0.7 {
		t.Errorf("overlap = %f, want ~0.67", got)
	}
}

func TestLexicalScorerSimilarityDisjoint(t *testing.T) {
	var s LexicalScorer
	if got := s.Similarity("weather boston", "purchase airline tickets"); got != 0 {
		t.Errorf("disjoint similarity = %f, want 0", got)
	}
}

func TestEndToEndWithLexicalScorer(t *testing.T) {
	a := New(LexicalScorer{}, Thresholds{})

	// Unrelated topic preempts.
	d, err := a.Evaluate(context.Background(), "buy flight tickets to tokyo", "show the weather in boston")
	if err != nil {
		t.Fatal(err)
	}
	if d != Preempt {
		t.Errorf("unrelated intent: got %s, want preempt", d)
	}

	// Same entities refine.
	d, err = a.Evaluate(context.Background(), "show the weather in boston tomorrow", "show the weather in boston")
	if err != nil {
		t.Fatal(err)
	}
	if d != Refine {
		t.Errorf("same entities: got %s, want refine", d)
	}
}
