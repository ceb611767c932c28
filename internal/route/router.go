// Package route chooses the execution path for each request: the local
// inference engine or the remote provider, with at most one fallback to
// the alternate path on failure.
package route

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source identifies the surface a command arrived from.
type Source string

const (
	SourceShortcuts Source = "shortcuts"
	SourceVoice     Source = "voice-assistant"
	SourceMessaging Source = "messaging-channel"
	SourceInternal  Source = "internal"
	SourceWidget    Source = "widget"
)

// ExecutionConfig controls path selection for one request.
type ExecutionConfig struct {
	// UseIntentAnalysis runs complexity classification before choosing a
	// path. Fast configurations skip it and take the low-latency path.
	UseIntentAnalysis bool
	// PreferredCloudTier selects the remote model tier when the remote
	// path is taken.
	PreferredCloudTier string
	// AllowFallback permits exactly one retry on the alternate path.
	AllowFallback bool
}

// ConfigFor maps a source to its default execution configuration.
// Voice and shortcut surfaces need latency; messaging gets balance;
// in-process callers get the full treatment; widgets are fast and final.
func ConfigFor(source Source) ExecutionConfig {
	switch source {
	case SourceShortcuts, SourceVoice:
		return ExecutionConfig{UseIntentAnalysis: false, PreferredCloudTier: "fast", AllowFallback: true}
	case SourceMessaging:
		return ExecutionConfig{UseIntentAnalysis: true, PreferredCloudTier: "balanced", AllowFallback: true}
	case SourceWidget:
		return ExecutionConfig{UseIntentAnalysis: false, PreferredCloudTier: "fast", AllowFallback: false}
	default: // internal
		return ExecutionConfig{UseIntentAnalysis: true, PreferredCloudTier: "deep", AllowFallback: true}
	}
}

// Decision records which path was chosen and why. Attached to every result
// for audit and for the local/cloud indicator shown to the caller.
type Decision struct {
	IsLocal   bool   `json:"is_local"`
	Tier      string `json:"tier"`
	Rationale string `json:"rationale"`
}

// Result is the outcome of one routed execution.
type Result struct {
	Text     string
	Decision Decision
}

// ExecError is a resource/availability failure: both paths failed (or the
// only permitted path did). Retry is a caller decision.
type ExecError struct {
	Primary  error
	Fallback error
}

func (e *ExecError) Error() string {
	if e.Fallback != nil {
		return fmt.Sprintf("execution failed on both paths: primary: %v; fallback: %v", e.Primary, e.Fallback)
	}
	return fmt.Sprintf("execution failed: %v", e.Primary)
}

func (e *ExecError) Unwrap() error { return e.Primary }

// Router owns the two execution paths.
type Router struct {
	local  Backend
	remote Backend
}

// NewRouter creates a Router over a local and a remote backend.
func NewRouter(local, remote Backend) *Router {
	return &Router{local: local, remote: remote}
}

// complexityMarkers suggest multi-step or deep-reasoning work that the
// remote tier handles better.
var complexityMarkers = []string{
	"analyze", "compare", "plan", "summarize", "explain why",
	"step by step", "research", "draft", "rewrite",
}

// classifyComplex is the intent-analysis pre-pass: long prompts and
// reasoning verbs route to the remote tier.
func classifyComplex(prompt string) bool {
	if len(prompt) > 400 {
		return true
	}
	lower := strings.ToLower(prompt)
	for _, m := range complexityMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ExecuteWithFallback runs the prompt on the selected primary path. On
// failure, if the configuration allows it, the alternate path is tried
// exactly once before an execution error surfaces. No further retry loop.
// Decision.IsLocal always records the path that actually served, not the
// preferred one.
func (r *Router) ExecuteWithFallback(ctx context.Context, prompt string, cfg ExecutionConfig) (Result, error) {
	primaryLocal := true
	rationale := "fast configuration prefers the local path"
	if cfg.UseIntentAnalysis && classifyComplex(prompt) {
		primaryLocal = false
		rationale = "intent analysis classified the request as complex"
	}

	primary, alternate := r.local, r.remote
	if !primaryLocal {
		primary, alternate = r.remote, r.local
	}

	text, primaryErr := r.attempt(ctx, primary, prompt, primaryLocal, cfg)
	if primaryErr == nil {
		return Result{Text: text, Decision: Decision{
			IsLocal:   primaryLocal,
			Tier:      r.tierFor(primaryLocal, cfg),
			Rationale: rationale,
		}}, nil
	}
	if errors.Is(primaryErr, context.Canceled) {
		return Result{}, primaryErr
	}
	// A trust-layer refusal is a policy decision, not an availability
	// failure; the alternate path must not be offered the same material.
	var blocked *BlockedError
	if errors.As(primaryErr, &blocked) {
		return Result{}, primaryErr
	}
	if !cfg.AllowFallback {
		return Result{}, &ExecError{Primary: primaryErr}
	}

	text, fallbackErr := r.attempt(ctx, alternate, prompt, !primaryLocal, cfg)
	if fallbackErr != nil {
		return Result{}, &ExecError{Primary: primaryErr, Fallback: fallbackErr}
	}
	return Result{Text: text, Decision: Decision{
		IsLocal:   !primaryLocal,
		Tier:      r.tierFor(!primaryLocal, cfg),
		Rationale: rationale + "; fell back after primary failure",
	}}, nil
}

// remoteTierConfigs shape the request sent to the remote provider. The
// local engine ignores them and runs with its own defaults.
var remoteTierConfigs = map[string]GenConfig{
	"fast":     {MaxTokens: 512, Timeout: 15 * time.Second},
	"balanced": {MaxTokens: 1024, Timeout: 60 * time.Second},
	"deep":     {MaxTokens: 4096, Timeout: 120 * time.Second},
}

// genConfigFor resolves the generation parameters for one attempt. The
// preferred cloud tier only shapes the remote leg.
func genConfigFor(isLocal bool, cfg ExecutionConfig) GenConfig {
	if isLocal {
		return GenConfig{}
	}
	if gc, ok := remoteTierConfigs[cfg.PreferredCloudTier]; ok {
		return gc
	}
	return remoteTierConfigs["balanced"]
}

func (r *Router) attempt(ctx context.Context, b Backend, prompt string, isLocal bool, cfg ExecutionConfig) (string, error) {
	ch, err := b.Generate(ctx, prompt, genConfigFor(isLocal, cfg))
	if err != nil {
		return "", err
	}
	return Collect(ctx, ch)
}

func (r *Router) tierFor(isLocal bool, cfg ExecutionConfig) string {
	if isLocal {
		return "local"
	}
	if cfg.PreferredCloudTier != "" {
		return cfg.PreferredCloudTier
	}
	return "balanced"
}
