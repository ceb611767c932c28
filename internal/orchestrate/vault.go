package orchestrate

import (
	"regexp"
	"sort"
)

// VaultReference is an opaque, process-local handle to a secret. The
// handle is unexported so a reference can never marshal the secret into
// a plan, an audit line, or an outbound payload.
type VaultReference struct {
	Label  string
	handle string
}

// Handle exposes the secret to the executor at the moment of use.
func (v VaultReference) Handle() string { return v.handle }

// refPattern matches vault placeholders inside step arguments, e.g.
// "{vault:smtp-password}".
var refPattern = regexp.MustCompile(`\{vault:([a-zA-Z0-9_.-]+)\}`)

// referencedLabels scans every argument of a step for vault placeholders
// and returns the labels deduplicated, in sorted argument-key order so the
// result is deterministic across runs.
func referencedLabels(step Step) []string {
	keys := make([]string, 0, len(step.Args))
	for k := range step.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	var labels []string
	for _, k := range keys {
		for _, m := range refPattern.FindAllStringSubmatch(step.Args[k], -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				labels = append(labels, m[1])
			}
		}
	}
	return labels
}
