// Package sanitize implements pattern-based detection and redaction for
// text crossing the trust boundary in either direction. Inbound text is
// scanned by a fixed, ordered battery of pattern families; detected spans
// are replaced with a family marker, never silently deleted, so downstream
// code still sees that something was there.
package sanitize

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Severity classifies how dangerous a matched pattern is.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// SevRank maps severity to a comparable integer for threshold checks.
var SevRank = map[Severity]int{
	SevLow:      0,
	SevMedium:   1,
	SevHigh:     2,
	SevCritical: 3,
}

// Violation records one pattern family hit.
type Violation struct {
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
}

// Result is the outcome of one Sanitize call. Produced fresh per call.
type Result struct {
	Text         string      `json:"text"`
	WasSanitized bool        `json:"was_sanitized"`
	Violations   []Violation `json:"violations,omitempty"`
}

// MaxSeverity returns the highest severity among the violations,
// or SevLow when there are none.
func (r Result) MaxSeverity() Severity {
	max := SevLow
	for _, v := range r.Violations {
		if SevRank[v.Severity] > SevRank[max] {
			max = v.Severity
		}
	}
	return max
}

// family is one independently-configurable pattern battery.
type family struct {
	name     string
	severity Severity
	patterns []*regexp.Regexp
}

func (f family) marker() string {
	return "[REDACTED:" + strings.ToUpper(f.name) + "]"
}

// Family names. Each can be disabled at construction.
const (
	FamilySQL       = "sql_injection"
	FamilyShell     = "shell_injection"
	FamilyTraversal = "path_traversal"
	FamilyScript    = "script_injection"
	FamilyPromptInj = "prompt_injection"
	FamilySSN       = "pii_ssn"
	FamilyEmail     = "pii_email"
	FamilyPhone     = "pii_phone"
	FamilyToken     = "bearer_token"
)

// defaultFamilies builds the fixed, ordered battery. Order matters: the
// executable families run before the PII families so a span that is both
// (for example a token inside a shell command) is attributed to the more
// severe family.
func defaultFamilies() []family {
	return []family{
		{FamilyShell, SevCritical, compileAll(
			"`[^`]+`",
			`\$\([^)]*\)`,
			`(?i)(^|[;&|]\s*)(rm\s+-rf?|mkfs\.?\w*|dd\s+if=|chmod\s+-R\s+777)\b`,
			`(?i)\|\s*(sh|bash|zsh|fish)\b`,
			`(?i);\s*(curl|wget|nc|bash|sh)\b`,
		)},
		{FamilySQL, SevHigh, compileAll(
			`(?i)\bunion\s+(all\s+)?select\b`,
			`(?i)\b(drop|truncate)\s+table\b`,
			`(?i)\b(insert\s+into|delete\s+from)\b.*(--|;)`,
			`(?i)\b(or|and)\s+'?\d+'?\s*=\s*'?\d+`,
			`'\s*--`,
		)},
		{FamilyTraversal, SevHigh, compileAll(
			`\.\./`,
			`\.\.\\`,
			`(?i)%2e%2e(%2f|%5c|/|\\)`,
			`(?i)\.\.(%2f|%5c)`,
		)},
		{FamilyScript, SevHigh, compileAll(
			`(?i)<\s*script\b[^>]*>`,
			`(?i)<\s*/\s*script\s*>`,
			`(?i)javascript\s*:`,
			`(?i)\bon(load|error|click|mouseover)\s*=`,
			`(?i)<\s*iframe\b`,
		)},
		{FamilyPromptInj, SevHigh, promptInjectionRes},
		{FamilyToken, SevHigh, compileAll(
			`\bsk-ant-[a-zA-Z0-9\-]{20,}`,
			`\bsk-[a-zA-Z0-9]{20,}`,
			`\bgsk_[a-zA-Z0-9]{20,}`,
			`(?i)\bbearer\s+[a-zA-Z0-9\-_.]{20,}`,
		)},
		{FamilySSN, SevMedium, compileAll(
			`\b\d{3}-\d{2}-\d{4}\b`,
		)},
		{FamilyEmail, SevLow, compileAll(
			`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`,
		)},
		{FamilyPhone, SevLow, compileAll(
			`\b\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`,
		)},
	}
}

// promptInjectionPatterns are redacted symmetrically on both the ingestion
// and generation paths.
var promptInjectionPatterns = []string{
	`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`,
	`(?i)disregard\s+(all\s+)?(previous|prior)\s+(instructions|context)`,
	`(?i)forget\s+(everything|all)\s+(you|above)`,
	`(?i)you\s+are\s+now\s+(a|the)\s+(system|developer|root)`,
	`(?i)new\s+system\s+prompt\s*:`,
	`<\|[a-z_]+\|>`,
	`(?i)\[/?(system|inst)\]`,
}

var promptInjectionRes = compileAll(promptInjectionPatterns...)

// compileAll compiles the given expressions, skipping any that fail.
// A pattern that cannot compile is treated as absent: malformed
// configuration degrades to "not matched" rather than crashing the caller.
func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sanitize: skipping invalid pattern %q: %v\n", e, err)
			continue
		}
		out = append(out, re)
	}
	return out
}

// ExtraPattern is an operator-defined pattern added to the battery.
type ExtraPattern struct {
	Name     string
	Regex    string
	Severity Severity
}

// Options configures a Sanitizer at construction.
type Options struct {
	// DisabledFamilies lists family names to skip entirely.
	DisabledFamilies []string
	// ExtraPatterns are appended after the built-in battery.
	ExtraPatterns []ExtraPattern
}

// Sanitizer runs the pattern battery. Safe for concurrent use: all state
// is immutable after construction.
type Sanitizer struct {
	families []family
}

// New creates a Sanitizer with the built-in battery adjusted by opts.
func New(opts Options) *Sanitizer {
	disabled := make(map[string]bool, len(opts.DisabledFamilies))
	for _, n := range opts.DisabledFamilies {
		disabled[strings.ToLower(n)] = true
	}

	var fams []family
	for _, f := range defaultFamilies() {
		if disabled[f.name] {
			continue
		}
		fams = append(fams, f)
	}

	for _, ep := range opts.ExtraPatterns {
		if ep.Name == "" || ep.Regex == "" {
			continue
		}
		sev := ep.Severity
		if SevRank[sev] == 0 && sev != SevLow {
			sev = SevMedium
		}
		ps := compileAll(ep.Regex)
		if len(ps) == 0 {
			continue
		}
		fams = append(fams, family{name: strings.ToLower(ep.Name), severity: sev, patterns: ps})
	}

	return &Sanitizer{families: fams}
}

// Sanitize runs the battery over raw text and replaces every detected span
// with the owning family's marker. WasSanitized is true iff at least one
// replacement occurred. Pattern evaluation never fails.
func (s *Sanitizer) Sanitize(raw string) Result {
	result := Result{Text: raw}
	for _, f := range s.families {
		for _, re := range f.patterns {
			n := len(re.FindAllStringIndex(result.Text, -1))
			if n == 0 {
				continue
			}
			result.Text = re.ReplaceAllString(result.Text, f.marker())
			result.WasSanitized = true
			for i := 0; i < n; i++ {
				result.Violations = append(result.Violations, Violation{
					Pattern:  f.name,
					Severity: f.severity,
				})
			}
		}
	}
	return result
}

// ContainsMaliciousPatterns answers without mutating. Equivalent to
// Sanitize(text).WasSanitized.
func (s *Sanitizer) ContainsMaliciousPatterns(text string) bool {
	for _, f := range s.families {
		for _, re := range f.patterns {
			if re.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// WhitelistSanitize drops every character outside the allowed class.
// The class uses regexp character-class syntax without brackets, e.g.
// "a-zA-Z0-9 _-". An uncompilable class degrades to alphanumerics plus
// space.
func WhitelistSanitize(text, allowedClass string) string {
	re, err := regexp.Compile("[^" + allowedClass + "]+")
	if err != nil {
		re = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)
	}
	return re.ReplaceAllString(text, "")
}
