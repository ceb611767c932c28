// Package arbiter decides whether a new instruction refines the active
// plan or preempts it. The decision is a three-gate cascade over an
// injected scoring capability, so the policy can be tested with
// deterministic stub scorers.
package arbiter

import (
	"context"
)

// Decision is the arbitration outcome.
type Decision string

const (
	// Refine absorbs the new instruction into the active plan.
	Refine Decision = "refine"
	// Preempt archives the active plan and starts a new one.
	Preempt Decision = "preempt"
)

// Scorer is the injected capability the arbitrator reasons with. One
// production implementation (LexicalScorer) and test doubles.
type Scorer interface {
	// Similarity returns 0–1 semantic similarity between two intents.
	Similarity(a, b string) float64
	// EntityOverlap returns the fraction of the old intent's significant
	// tokens that also appear in the new intent.
	EntityOverlap(newIntent, oldIntent string) float64
	// HasModifier reports whether the text contains a continuation
	// modifier ("actually", "instead", "also", ...).
	HasModifier(text string) bool
}

// Thresholds tune the gate cascade.
type Thresholds struct {
	// Preemption is the similarity floor below which the topics are
	// considered unrelated.
	Preemption float64
	// Refinement is the entity-overlap level at which continuation is
	// assumed.
	Refinement float64
}

// DefaultThresholds match the shipped arbitration policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Preemption: 0.6, Refinement: 0.7}
}

// Arbitrator is stateless; every call is independent.
type Arbitrator struct {
	scorer     Scorer
	thresholds Thresholds
}

// New creates an Arbitrator around the given scorer. Zero thresholds are
// replaced with the defaults.
func New(scorer Scorer, t Thresholds) *Arbitrator {
	if t.Preemption <= 0 {
		t.Preemption = DefaultThresholds().Preemption
	}
	if t.Refinement <= 0 {
		t.Refinement = DefaultThresholds().Refinement
	}
	return &Arbitrator{scorer: scorer, thresholds: t}
}

// Evaluate classifies newIntent against the active plan's source intent.
//
// Gate order (must not be changed), first match wins:
//  1. Similarity below the preemption threshold — preempt. Unrelated
//     topics never refine.
//  2. Entity overlap at or above the refinement threshold — refine. Same
//     concrete nouns strongly implies continuation.
//  3. Lexical modifier present — refine.
//  4. Otherwise — preempt: topically related but about different entities
//     with no explicit continuation language.
//
// Cancellation is checked before each gate and aborts without side
// effects.
func (a *Arbitrator) Evaluate(ctx context.Context, newIntent, activeIntent string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.scorer.Similarity(newIntent, activeIntent) < a.thresholds.Preemption {
		return Preempt, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.scorer.EntityOverlap(newIntent, activeIntent) >= a.thresholds.Refinement {
		return Refine, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.scorer.HasModifier(newIntent) {
		return Refine, nil
	}

	return Preempt, nil
}
