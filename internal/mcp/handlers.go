package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stewardhq/steward/internal/orchestrate"
	"github.com/stewardhq/steward/internal/route"
)

// ExecuteInput defines parameters for the steward_execute tool.
type ExecuteInput struct {
	Command string `json:"command" jsonschema:"command to execute"`
	Source  string `json:"source,omitempty" jsonschema:"originating surface (shortcuts/voice-assistant/messaging-channel/widget), defaults to internal"`
}

// ExecuteOutput contains the execution result or block details.
type ExecuteOutput struct {
	Text     string `json:"text,omitempty"`
	PlanID   string `json:"plan_id,omitempty"`
	Action   string `json:"action,omitempty"`
	IsLocal  bool   `json:"is_local,omitempty"`
	Tier     string `json:"tier,omitempty"`
	Blocked  bool   `json:"blocked,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// CheckInput defines parameters for the steward_check tool.
type CheckInput struct {
	Text string `json:"text" jsonschema:"text to scan"`
}

// CheckOutput contains the dry-run result.
type CheckOutput struct {
	Sanitized bool     `json:"sanitized"`
	Text      string   `json:"text"`
	Severity  string   `json:"severity,omitempty"`
	Families  []string `json:"families,omitempty"`
}

// StatusInput is empty.
type StatusInput struct{}

// StatusOutput reports the core's current state.
type StatusOutput struct {
	ActivePlanID string   `json:"active_plan_id,omitempty"`
	SourceIntent string   `json:"source_intent,omitempty"`
	Steps        int      `json:"steps,omitempty"`
	QueueDepth   int      `json:"queue_depth"`
	RecentPlans  []string `json:"recent_plans,omitempty"`
}

func (s *Server) handleExecute(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecuteInput) (*mcpsdk.CallToolResult, ExecuteOutput, error) {
	source := route.Source(input.Source)
	if source == "" {
		source = route.SourceInternal
	}

	resp, err := s.gw.Execute(ctx, input.Command, source)
	if err != nil {
		var sv *orchestrate.SecurityViolationError
		if errors.As(err, &sv) {
			out := ExecuteOutput{Blocked: true, Reason: sv.Reason, Severity: sv.Severity}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		var blocked *route.BlockedError
		if errors.As(err, &blocked) {
			out := ExecuteOutput{Blocked: true, Reason: blocked.Reason}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		return nil, ExecuteOutput{}, err
	}

	return nil, ExecuteOutput{
		Text:    resp.Text,
		PlanID:  resp.Plan.ID,
		Action:  string(resp.Action),
		IsLocal: resp.Decision.IsLocal,
		Tier:    resp.Decision.Tier,
	}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	res := s.gw.Check(input.Text)
	out := CheckOutput{Sanitized: res.WasSanitized, Text: res.Text}
	if res.WasSanitized {
		out.Severity = string(res.MaxSeverity())
		seen := make(map[string]bool)
		for _, v := range res.Violations {
			if !seen[v.Pattern] {
				seen[v.Pattern] = true
				out.Families = append(out.Families, v.Pattern)
			}
		}
	}
	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st := s.gw.Status()
	out := StatusOutput{QueueDepth: st.QueueDepth}
	if st.ActivePlan != nil {
		out.ActivePlanID = st.ActivePlan.ID
		out.SourceIntent = st.ActivePlan.SourceIntent
		out.Steps = len(st.ActivePlan.Steps)
	}
	if s.store != nil {
		plans, err := s.store.List(ctx, 5)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		for _, p := range plans {
			out.RecentPlans = append(out.RecentPlans, p.ID+" ("+string(p.Status)+")")
		}
	}
	return nil, out, nil
}
