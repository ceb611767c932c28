// Package orchestrate owns the plan lifecycle. At most one plan is
// active at a time; a new command either refines it (appends a step) or
// preempts it (archives it and starts over). All state changes go
// through one mutex-guarded owner, so observers never see a plan
// mid-transition.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stewardhq/steward/internal/arbiter"
	"github.com/stewardhq/steward/internal/audit"
)

// Action reports what Process did with the command.
type Action string

const (
	ActionProposed  Action = "proposed"
	ActionRefined   Action = "refined"
	ActionPreempted Action = "preempted"
)

// ErrNoActivePlan is returned by operations that require an active plan.
var ErrNoActivePlan = errors.New("no active plan")

// Archiver persists plans that leave the active slot. The history store
// implements it; a nil archiver drops archived plans.
type Archiver interface {
	Archive(plan Plan) error
}

// destructiveTools are capabilities that mutate state outside the
// conversation. A destructive step must resolve at least one vault
// reference: possession of a registered credential is the proof that
// the step was set up deliberately, not injected.
var destructiveTools = map[string]bool{
	"file.delete":  true,
	"file.write":   true,
	"shell.run":    true,
	"payment.send": true,
}

// messageRe is the drafting fast path: "message <recipient>: <body>" and
// "text <recipient>: <body>" skip freeform drafting entirely.
var messageRe = regexp.MustCompile(`(?i)^(?:message|text)\s+(\S+)\s*:\s*(\S.*)$`)

// Options configures an Orchestrator.
type Options struct {
	// Scorer backs the refine/preempt arbitration. Defaults to the
	// lexical scorer.
	Scorer     arbiter.Scorer
	Thresholds arbiter.Thresholds
	// Audit receives plan lifecycle events. May be nil.
	Audit *audit.Log
	// Archiver receives completed and preempted plans. May be nil.
	Archiver Archiver
}

// Orchestrator is the single owner of the active plan and the vault
// reference table.
type Orchestrator struct {
	mu       sync.Mutex
	arb      *arbiter.Arbitrator
	log      *audit.Log
	archiver Archiver
	active   *Plan
	vault    map[string]VaultReference
}

// New creates an Orchestrator with no active plan.
func New(opts Options) *Orchestrator {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = arbiter.LexicalScorer{}
	}
	return &Orchestrator{
		arb:      arbiter.New(scorer, opts.Thresholds),
		log:      opts.Audit,
		archiver: opts.Archiver,
		vault:    make(map[string]VaultReference),
	}
}

// Process routes one command through the plan lifecycle. With no active
// plan it drafts one. With an active plan it arbitrates: refine appends
// a step to the active plan, preempt archives it and drafts a
// replacement. Cancellation aborts before any state change.
func (o *Orchestrator) Process(ctx context.Context, intent string) (Plan, Action, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return Plan{}, "", fmt.Errorf("empty command")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		plan := o.draft(intent)
		o.active = &plan
		o.record(audit.Entry{Event: audit.EventPlanProposed, PlanID: plan.ID})
		return plan.clone(), ActionProposed, nil
	}

	decision, err := o.arb.Evaluate(ctx, intent, o.active.SourceIntent)
	if err != nil {
		return Plan{}, "", err
	}

	if decision == arbiter.Refine {
		step := draftStep(intent)
		o.active.Steps = append(o.active.Steps, step)
		o.record(audit.Entry{Event: audit.EventPlanRefined, PlanID: o.active.ID, Reason: step.Title})
		return o.active.clone(), ActionRefined, nil
	}

	o.archiveActive()
	plan := o.draft(intent)
	o.active = &plan
	o.record(audit.Entry{Event: audit.EventPlanProposed, PlanID: plan.ID})
	return plan.clone(), ActionPreempted, nil
}

// Active returns a copy of the active plan, if any.
func (o *Orchestrator) Active() (Plan, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return Plan{}, false
	}
	return o.active.clone(), true
}

// Complete marks the active plan completed, hands it to the archiver,
// and frees the active slot.
func (o *Orchestrator) Complete() (Plan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return Plan{}, ErrNoActivePlan
	}
	plan := o.active
	plan.Status = StatusCompleted
	plan.CompletedAt = time.Now().UTC()
	o.active = nil
	o.persist(plan)
	return plan.clone(), nil
}

// RegisterSecret stores a credential handle under a label and returns
// the reference steps use to name it. The handle itself never appears
// in any serialized form.
func (o *Orchestrator) RegisterSecret(label, handle string) VaultReference {
	o.mu.Lock()
	defer o.mu.Unlock()
	ref := VaultReference{Label: label, handle: handle}
	o.vault[label] = ref
	return ref
}

// PrepareStep resolves a step's vault references and enforces the
// destructive-tool gate. It returns the resolved references in the
// order the step names them.
func (o *Orchestrator) PrepareStep(step Step) ([]VaultReference, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var resolved []VaultReference
	for _, label := range referencedLabels(step) {
		ref, ok := o.vault[label]
		if !ok {
			err := &SecurityViolationError{
				Reason:   fmt.Sprintf("step %q names unregistered vault label %q", step.Title, label),
				Severity: "high",
			}
			o.record(audit.Entry{Event: audit.EventSecurityViolation, Reason: err.Reason, Severity: err.Severity})
			return nil, err
		}
		resolved = append(resolved, ref)
	}

	if destructiveTools[step.Tool] && len(resolved) == 0 {
		err := &SecurityViolationError{
			Reason:   fmt.Sprintf("destructive tool %q invoked with no resolved vault reference", step.Tool),
			Severity: "critical",
		}
		o.record(audit.Entry{Event: audit.EventSecurityViolation, Reason: err.Reason, Severity: err.Severity})
		return nil, err
	}
	return resolved, nil
}

// archiveActive moves the active plan to archived. Caller holds the lock.
func (o *Orchestrator) archiveActive() {
	plan := o.active
	plan.Status = StatusArchived
	plan.CompletedAt = time.Now().UTC()
	o.active = nil
	o.record(audit.Entry{Event: audit.EventPlanPreempted, PlanID: plan.ID})
	o.persist(plan)
}

func (o *Orchestrator) persist(plan *Plan) {
	if o.archiver == nil {
		return
	}
	if err := o.archiver.Archive(plan.clone()); err != nil {
		// Archival is best-effort; losing history must not block the
		// new plan.
		fmt.Fprintf(os.Stderr, "orchestrate: archive plan %s: %v\n", plan.ID, err)
	}
}

func (o *Orchestrator) record(e audit.Entry) {
	if err := o.log.Record(e); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrate: audit: %v\n", err)
	}
}

// draft builds a fresh active plan for the intent.
func (o *Orchestrator) draft(intent string) Plan {
	return Plan{
		ID:           uuid.NewString(),
		SourceIntent: intent,
		Steps:        []Step{draftStep(intent)},
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
}

// draftStep turns a command into one executable step. Messaging commands
// take the structured fast path; everything else becomes a generation
// step for the execution router.
func draftStep(intent string) Step {
	if m := messageRe.FindStringSubmatch(intent); m != nil {
		return newStep("send message to "+m[1], "message.send", map[string]string{
			"recipient": m[1],
			"body":      m[2],
		})
	}
	return newStep(summarize(intent), "assistant.respond", map[string]string{
		"prompt": intent,
	})
}

// summarize produces a short step title from the intent.
func summarize(intent string) string {
	const max = 60
	if len(intent) <= max {
		return intent
	}
	return intent[:max-1] + "…"
}
