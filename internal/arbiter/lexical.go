package arbiter

import (
	"strings"
)

// LexicalScorer is the production Scorer: token Jaccard for similarity,
// significant-token overlap for entity persistence, and a fixed modifier
// set. An NLP-backed capability can be injected in its place.
type LexicalScorer struct{}

// modifiers are the continuation words checked by gate 3. Matched as whole
// tokens, case-insensitively.
var modifiers = map[string]bool{
	"actually": true,
	"instead":  true,
	"also":     true,
	"no":       true,
	"add":      true,
	"remove":   true,
	"plus":     true,
	"change":   true,
	"rather":   true,
	"too":      true,
}

// significantTokens lowercases, splits on non-letter/digit runs, and keeps
// tokens of length >= 3.
func significantTokens(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range splitTokens(text) {
		if len(tok) >= 3 {
			out[tok] = true
		}
	}
	return out
}

func splitTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// Similarity is the Jaccard index over significant tokens.
func (LexicalScorer) Similarity(a, b string) float64 {
	ta, tb := significantTokens(a), significantTokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// EntityOverlap is the fraction of the old intent's significant tokens
// that persist in the new intent.
func (LexicalScorer) EntityOverlap(newIntent, oldIntent string) float64 {
	old := significantTokens(oldIntent)
	if len(old) == 0 {
		return 0
	}
	now := significantTokens(newIntent)
	kept := 0
	for tok := range old {
		if now[tok] {
			kept++
		}
	}
	return float64(kept) / float64(len(old))
}

// HasModifier checks for any continuation modifier as a whole token.
func (LexicalScorer) HasModifier(text string) bool {
	for _, tok := range splitTokens(text) {
		if modifiers[tok] {
			return true
		}
	}
	return false
}
