package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// The generation-side guard enforces asymmetric rules for content about to
// be persisted or executed: filenames and oversized payloads are rejected
// outright (hard failure, no partial writes), while executable-invocation
// idioms inside generated text are annotated with a blocked marker naming
// the idiom that matched.

// DefaultMaxGeneratedBytes is the byte budget for generated payloads.
const DefaultMaxGeneratedBytes = 1 << 20 // 1 MiB

// ValidationError reports a generation-side rejection. Validation failures
// occur before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// validFilename matches alphanumerics, dash, underscore, dot, and spaces.
var validFilename = regexp.MustCompile(`^[a-zA-Z0-9._\- ]+$`)

// traversalSequences are rejected in filenames, including percent-encoded
// variants. Containment check is case-insensitive.
var traversalSequences = []string{"../", "..\\", "%2e%2e", "..%2f", "..%5c", "%2f..", "%5c.."}

// CheckFilename rejects filenames containing traversal sequences or
// characters outside the safe set. Rejection is a hard failure, not a
// redaction.
func CheckFilename(name string) error {
	if name == "" {
		return &ValidationError{Field: "filename", Reason: "must not be empty"}
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "..") {
		return &ValidationError{Field: "filename", Reason: "must not contain '..'"}
	}
	for _, seq := range traversalSequences {
		if strings.Contains(lower, seq) {
			return &ValidationError{Field: "filename", Reason: fmt.Sprintf("traversal sequence %q", seq)}
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{Field: "filename", Reason: "must not contain path separators"}
	}
	if !validFilename.MatchString(name) {
		return &ValidationError{Field: "filename", Reason: "contains invalid characters"}
	}
	return nil
}

// CheckPayloadSize rejects payloads exceeding the byte budget. A limit of
// zero or less uses DefaultMaxGeneratedBytes.
func CheckPayloadSize(payload []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxGeneratedBytes
	}
	if len(payload) > limit {
		return &ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("%d bytes exceeds budget of %d", len(payload), limit),
		}
	}
	return nil
}

// executableIdiom pairs a name with the pattern that detects it in
// generated output.
type executableIdiom struct {
	name string
	re   *regexp.Regexp
}

var executableIdioms = []executableIdiom{
	{"shebang", regexp.MustCompile(`(?m)^#!\s*/\S+`)},
	{"script_tag", regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>`)},
	{"dynamic_eval", regexp.MustCompile(`(?i)\b(eval|exec)\s*\(`)},
	{"privilege_escalation", regexp.MustCompile(`(?i)\bsudo\s+(su|-i|bash|sh)\b`)},
	{"destructive_shell", regexp.MustCompile(`(?i)\b(rm\s+-rf?\s+[/~]|mkfs\.?\w*\s|dd\s+if=/dev/)`)},
	{"network_fetch", regexp.MustCompile(`(?i)\b(curl|wget)\s+\S+\s*\|\s*(sh|bash)\b`)},
	{"fork_bomb", regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;:`)},
}

// SanitizeGenerated replaces executable-invocation idioms in generated
// text with a blocked marker identifying which idiom matched, and applies
// the prompt-injection echo redaction symmetrically with the ingestion
// path.
func SanitizeGenerated(text string) Result {
	result := Result{Text: text}
	for _, idiom := range executableIdioms {
		n := len(idiom.re.FindAllStringIndex(result.Text, -1))
		if n == 0 {
			continue
		}
		marker := "[BLOCKED:" + strings.ToUpper(idiom.name) + "]"
		result.Text = idiom.re.ReplaceAllString(result.Text, marker)
		result.WasSanitized = true
		for i := 0; i < n; i++ {
			result.Violations = append(result.Violations, Violation{
				Pattern:  idiom.name,
				Severity: SevCritical,
			})
		}
	}

	// Prompt-injection echoes are redacted on generation exactly as on
	// ingestion.
	for _, re := range promptInjectionRes {
		n := len(re.FindAllStringIndex(result.Text, -1))
		if n == 0 {
			continue
		}
		result.Text = re.ReplaceAllString(result.Text, "[REDACTED:PROMPT_INJECTION]")
		result.WasSanitized = true
		for i := 0; i < n; i++ {
			result.Violations = append(result.Violations, Violation{
				Pattern:  FamilyPromptInj,
				Severity: SevHigh,
			})
		}
	}

	return result
}
