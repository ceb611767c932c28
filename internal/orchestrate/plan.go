package orchestrate

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a plan. A plan is active exactly
// until it completes or is preempted; there is no path back.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Step is one unit of work within a plan. Tool names the capability the
// step invokes; RequiresApproval marks steps the caller must confirm
// before they run.
type Step struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Tool             string            `json:"tool"`
	Args             map[string]string `json:"args,omitempty"`
	RequiresApproval bool              `json:"requires_approval,omitempty"`
}

// Plan is the unit the orchestrator manages. SourceIntent is the raw
// command the plan was drafted from; refinements append steps but never
// rewrite it.
type Plan struct {
	ID           string    `json:"id"`
	SourceIntent string    `json:"source_intent"`
	Steps        []Step    `json:"steps"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}

// clone returns a deep copy so callers can never mutate the plan the
// orchestrator owns.
func (p *Plan) clone() Plan {
	out := *p
	out.Steps = make([]Step, len(p.Steps))
	copy(out.Steps, p.Steps)
	for i := range out.Steps {
		if p.Steps[i].Args != nil {
			args := make(map[string]string, len(p.Steps[i].Args))
			for k, v := range p.Steps[i].Args {
				args[k] = v
			}
			out.Steps[i].Args = args
		}
	}
	return out
}

func newStep(title, tool string, args map[string]string) Step {
	return Step{ID: uuid.NewString(), Title: title, Tool: tool, Args: args}
}
