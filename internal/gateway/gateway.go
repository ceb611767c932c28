// Package gateway is the single inbound entry point. Every command from
// every surface passes through the same pipeline: sanitize, arbitrate
// into the plan, admit through the scheduler, execute through the
// router. Nothing reaches a model or a tool any other way.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ppiankov/neurorouter"

	"github.com/stewardhq/steward/internal/arbiter"
	"github.com/stewardhq/steward/internal/audit"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/netguard"
	"github.com/stewardhq/steward/internal/orchestrate"
	"github.com/stewardhq/steward/internal/route"
	"github.com/stewardhq/steward/internal/sanitize"
	"github.com/stewardhq/steward/internal/schedule"
)

// Response is the outcome of one executed command.
type Response struct {
	Plan     orchestrate.Plan   `json:"plan"`
	Action   orchestrate.Action `json:"action"`
	Text     string             `json:"text"`
	Decision route.Decision     `json:"decision"`
	// Violations lists redactions applied to the inbound command.
	Violations []sanitize.Violation `json:"violations,omitempty"`
}

// Status is a point-in-time snapshot for callers that poll.
type Status struct {
	ActivePlan *orchestrate.Plan `json:"active_plan,omitempty"`
	QueueDepth int               `json:"queue_depth"`
}

// Options assembles a Gateway. Local, Remote, and Scorer override the
// defaults built from the config; tests inject stubs here.
type Options struct {
	Config   config.Config
	Audit    *audit.Log
	Archiver orchestrate.Archiver
	Scorer   arbiter.Scorer
	Local    route.Backend
	Remote   route.Backend
}

// Gateway owns the pipeline. Configuration-derived pieces swap under the
// mutex on hot reload; the scheduler, orchestrator, and circuit state
// survive reloads.
type Gateway struct {
	mu             sync.Mutex
	sanitizer      *sanitize.Sanitizer
	blockThreshold sanitize.Severity
	guard          *netguard.Guard
	sched          *schedule.Scheduler
	orch           *orchestrate.Orchestrator
	router         *route.Router
	log            *audit.Log
}

// New builds a Gateway from configuration.
func New(opts Options) *Gateway {
	cfg := opts.Config

	guardOpts := cfg.GuardOptions()
	guardOpts.OnCircuitTripped = func(host string, failures int) {
		recordTo(opts.Audit, audit.Entry{
			Event:  audit.EventCircuitTripped,
			Host:   host,
			Reason: fmt.Sprintf("%d consecutive failures", failures),
		})
	}
	guardOpts.OnCircuitClosed = func(host string) {
		recordTo(opts.Audit, audit.Entry{Event: audit.EventCircuitClosed, Host: host})
	}
	guard := netguard.NewGuard(guardOpts)

	local := opts.Local
	if local == nil {
		local = route.NewChatBackend("local", cfg.Router.Local.URL, "", cfg.Router.Local.Model, nil)
	}
	remote := opts.Remote
	if remote == nil {
		apiKey := os.Getenv(cfg.Router.Remote.APIKeyEnv)
		remote = route.NewChatBackend("remote", cfg.Router.Remote.URL, apiKey, cfg.Router.Remote.Model, guard)
	}

	return &Gateway{
		sanitizer:      sanitize.New(cfg.SanitizerOptions()),
		blockThreshold: cfg.BlockThreshold(),
		guard:          guard,
		sched:          schedule.New(),
		orch: orchestrate.New(orchestrate.Options{
			Scorer:     opts.Scorer,
			Thresholds: cfg.Thresholds(),
			Audit:      opts.Audit,
			Archiver:   opts.Archiver,
		}),
		router: route.NewRouter(local, remote),
		log:    opts.Audit,
	}
}

// tierFor maps a surface to its scheduling tier. Voice cannot wait;
// in-process maintenance work yields to everything else.
func tierFor(source route.Source) schedule.Tier {
	switch source {
	case route.SourceVoice:
		return schedule.TierCritical
	case route.SourceInternal:
		return schedule.TierBackground
	default:
		return schedule.TierUserInitiated
	}
}

// Execute runs one command end to end.
//
// Pipeline order (must not be changed):
//  1. Sanitize. At or above the block threshold the command is refused.
//  2. Arbitrate into the plan (propose, refine, or preempt).
//  3. Admit through the scheduler at the source's tier.
//  4. Resolve vault references and gate destructive steps.
//  5. Execute through the router, racing a preemption watch: a critical
//     arrival cancels lower-tier work cooperatively.
//  6. Sanitize the generated output before it is returned.
func (g *Gateway) Execute(ctx context.Context, command string, source route.Source) (Response, error) {
	g.record(audit.Entry{Event: audit.EventCommandReceived, Source: string(source)})

	g.mu.Lock()
	sanitizer := g.sanitizer
	threshold := g.blockThreshold
	g.mu.Unlock()

	res := sanitizer.Sanitize(command)
	if res.WasSanitized {
		g.record(audit.Entry{
			Event:    audit.EventSanitizationTriggered,
			Source:   string(source),
			Severity: string(res.MaxSeverity()),
		})
	}
	if res.WasSanitized && sanitize.SevRank[res.MaxSeverity()] >= sanitize.SevRank[threshold] {
		err := &orchestrate.SecurityViolationError{
			Reason:   fmt.Sprintf("command matched %d blocked pattern(s)", len(res.Violations)),
			Severity: string(res.MaxSeverity()),
		}
		g.record(audit.Entry{Event: audit.EventSecurityViolation, Source: string(source), Reason: err.Reason, Severity: err.Severity})
		return Response{Violations: res.Violations}, err
	}

	plan, action, err := g.orch.Process(ctx, res.Text)
	if err != nil {
		return Response{}, err
	}

	tier := tierFor(source)
	task := schedule.NewTask(tier, plan.ID)
	g.sched.Enqueue(task)
	// Retire our own task by ID; Dequeue would pop whichever task sits at
	// the head, including another caller's queued critical.
	defer g.sched.Take(task.ID)

	step := plan.Steps[len(plan.Steps)-1]
	if _, err := g.orch.PrepareStep(step); err != nil {
		return Response{Plan: plan, Action: action}, err
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if tier != schedule.TierCritical {
		go func() {
			if g.sched.WaitForPreemption(execCtx) == nil {
				cancel()
			}
		}()
	}

	result, err := g.execStep(execCtx, step, source)
	if err != nil {
		var blocked *route.BlockedError
		if errors.As(err, &blocked) {
			g.record(audit.Entry{Event: audit.EventSecurityViolation, Host: blocked.Host, Reason: blocked.Reason})
		}
		if errors.Is(err, neurorouter.ErrRateLimited) {
			err = &orchestrate.RetryableError{Op: "execution", Err: err}
		}
		return Response{Plan: plan, Action: action, Violations: res.Violations}, err
	}

	gen := sanitize.SanitizeGenerated(result.Text)
	if gen.WasSanitized {
		g.record(audit.Entry{
			Event:    audit.EventSanitizationTriggered,
			Source:   string(source),
			Severity: string(gen.MaxSeverity()),
			Reason:   "generated output",
		})
	}

	return Response{
		Plan:       plan,
		Action:     action,
		Text:       gen.Text,
		Decision:   result.Decision,
		Violations: res.Violations,
	}, nil
}

// execStep dispatches one step. Structured messaging steps short-circuit;
// everything else goes through the execution router.
func (g *Gateway) execStep(ctx context.Context, step orchestrate.Step, source route.Source) (route.Result, error) {
	if step.Tool == "message.send" {
		return route.Result{
			Text:     fmt.Sprintf("queued message to %s: %s", step.Args["recipient"], step.Args["body"]),
			Decision: route.Decision{IsLocal: true, Tier: "local", Rationale: "structured messaging fast path"},
		}, nil
	}
	prompt := step.Args["prompt"]
	if prompt == "" {
		prompt = step.Title
	}
	return g.router.ExecuteWithFallback(ctx, prompt, route.ConfigFor(source))
}

// Check is the sanitize dry run used by the CLI and the MCP check tool.
func (g *Gateway) Check(text string) sanitize.Result {
	g.mu.Lock()
	sanitizer := g.sanitizer
	g.mu.Unlock()
	return sanitizer.Sanitize(text)
}

// Status snapshots the active plan and queue depth.
func (g *Gateway) Status() Status {
	var st Status
	if plan, ok := g.orch.Active(); ok {
		st.ActivePlan = &plan
	}
	st.QueueDepth = g.sched.Len()
	return st
}

// CompletePlan finishes the active plan.
func (g *Gateway) CompletePlan() (orchestrate.Plan, error) {
	return g.orch.Complete()
}

// Guard exposes the network trust layer for callers that make their own
// outbound requests.
func (g *Gateway) Guard() *netguard.Guard {
	return g.guard
}

// ApplyConfig hot-swaps the configuration-derived pieces. Endpoint
// policies are installed into the existing guard so circuit state
// survives the reload.
func (g *Gateway) ApplyConfig(cfg config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sanitizer = sanitize.New(cfg.SanitizerOptions())
	g.blockThreshold = cfg.BlockThreshold()
	for _, p := range cfg.Network.Endpoints {
		g.guard.SetPolicy(p)
	}
	return nil
}

func (g *Gateway) record(e audit.Entry) {
	recordTo(g.log, e)
}

func recordTo(log *audit.Log, e audit.Entry) {
	if err := log.Record(e); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: audit: %v\n", err)
	}
}
