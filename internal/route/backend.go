package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/neurorouter"

	"github.com/stewardhq/steward/internal/netguard"
)

// Chunk is one piece of streamed generation output.
type Chunk struct {
	Text string
}

// GenConfig carries per-request generation parameters.
type GenConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Backend is an inference capability. Generate returns a channel of text
// chunks; the channel is closed when generation completes or the context
// is cancelled. Each session owns its own buffer — implementations must
// never share chunk state across calls.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, cfg GenConfig) (<-chan Chunk, error)
}

// Collect accumulates a chunk stream into a string. On cancellation it
// discards the partial buffer and returns the context error: a cancelled
// generation yields nothing, not a fragment.
func Collect(ctx context.Context, ch <-chan Chunk) (string, error) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return b.String(), nil
			}
			b.WriteString(chunk.Text)
		}
	}
}

// ChatBackend calls an OpenAI-compatible chat completion endpoint. It is
// used both for the local engine (localhost URL) and the remote provider;
// remote instances carry a netguard so nothing leaves unchecked.
type ChatBackend struct {
	name   string
	apiURL string
	apiKey string
	model  string
	guard  *netguard.Guard
	client *http.Client
}

// NewChatBackend creates a backend for the given endpoint. guard may be
// nil for local (in-process-boundary) endpoints.
func NewChatBackend(name, apiURL, apiKey, model string, guard *netguard.Guard) *ChatBackend {
	return &ChatBackend{
		name:   name,
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		guard:  guard,
		client: &http.Client{},
	}
}

func (b *ChatBackend) Name() string { return b.name }

// Generate performs the chat completion and re-emits the response as
// word-boundary chunks, checking cancellation at each yield point.
func (b *ChatBackend) Generate(ctx context.Context, prompt string, cfg GenConfig) (<-chan Chunk, error) {
	text, err := b.complete(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(text, " ") {
			select {
			case <-ctx.Done():
				return
			case out <- Chunk{Text: word}:
			}
		}
	}()
	return out, nil
}

func (b *ChatBackend) complete(ctx context.Context, prompt string, cfg GenConfig) (string, error) {
	model := cfg.Model
	if model == "" {
		model = b.model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	body, _ := json.Marshal(map[string]any{
		"model":      model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": maxTokens,
	})

	host := ""
	if b.guard != nil {
		decision := b.guard.Decide("inference", http.MethodPost, b.apiURL)
		if !decision.Allowed {
			return "", &BlockedError{Host: decision.Host, Reason: decision.Reason}
		}
		host = decision.Host
		if decision.Timeout > 0 {
			timeout = decision.Timeout
		}
		// Free text in the prompt is scanned before anything is built;
		// sensitive material blocks the leg rather than being rewritten.
		if violations := netguard.ScanOutboundText(prompt); len(violations) > 0 {
			return "", &BlockedError{
				Host:   host,
				Reason: fmt.Sprintf("outbound text contains %s", violations[0].Kind),
			}
		}
		redacted, _ := netguard.RedactJSON(body)
		body = redacted
	} else if u, err := url.Parse(b.apiURL); err == nil {
		host = u.Hostname()
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.reportFailure(host)
		return "", fmt.Errorf("%s request failed: %w", b.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		b.reportFailure(host)
		return "", fmt.Errorf("%s: %w", b.name, neurorouter.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		b.reportFailure(host)
		return "", fmt.Errorf("%s HTTP %d: %s", b.name, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		b.reportFailure(host)
		return "", fmt.Errorf("%s: empty response", b.name)
	}

	b.reportSuccess(host)
	return result.Choices[0].Message.Content, nil
}

func (b *ChatBackend) reportFailure(host string) {
	if b.guard != nil && host != "" {
		b.guard.ReportFailure(host)
	}
}

func (b *ChatBackend) reportSuccess(host string) {
	if b.guard != nil && host != "" {
		b.guard.ReportSuccess(host)
	}
}

// BlockedError reports that the network trust layer refused the outbound
// leg. It is a policy violation, not a retryable failure.
type BlockedError struct {
	Host   string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("outbound blocked (%s): %s", e.Host, e.Reason)
}
