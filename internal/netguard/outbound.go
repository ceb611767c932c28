package netguard

import (
	"regexp"
)

// The outbound text scanner blocks free text that carries shapes which
// should never leave the process: SSNs, local filesystem paths, credential
// assignments, provider API keys, and card numbers. Card detection is
// Luhn-gated so arbitrary long digit runs do not false-positive.

var (
	ssnRe = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// Local filesystem paths under common roots.
	localPathRe = regexp.MustCompile(`(?:/(?:home|var|etc|root|usr|tmp|opt)/\S+|[A-Za-z]:\\Users\\\S+)`)

	// key=value or key: value where the key suggests a secret.
	credAssignRe = regexp.MustCompile(`(?i)\b(?:password|passwd|secret|token|api_key|apikey|auth)[ \t]*[=:][ \t]*\S+`)

	// Known provider API key shapes.
	providerKeyRes = []*regexp.Regexp{
		regexp.MustCompile(`\bsk-ant-[a-zA-Z0-9\-]{20,}`),
		regexp.MustCompile(`\bsk-[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`\bgsk_[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		regexp.MustCompile(`\bghp_[a-zA-Z0-9]{36}\b`),
	}

	// Candidate card numbers: 13–19 digits, optionally space/dash grouped.
	cardCandidateRe = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
)

// OutboundViolation names what the scanner found.
type OutboundViolation struct {
	Kind  string
	Match string
}

// ScanOutboundText checks free text about to leave the process. A non-empty
// result means the text must be blocked.
func ScanOutboundText(text string) []OutboundViolation {
	var found []OutboundViolation

	for _, m := range ssnRe.FindAllString(text, -1) {
		found = append(found, OutboundViolation{Kind: "ssn", Match: m})
	}
	for _, m := range localPathRe.FindAllString(text, -1) {
		found = append(found, OutboundViolation{Kind: "local_path", Match: m})
	}
	for _, m := range credAssignRe.FindAllString(text, -1) {
		found = append(found, OutboundViolation{Kind: "credential_assignment", Match: m})
	}
	for _, re := range providerKeyRes {
		for _, m := range re.FindAllString(text, -1) {
			found = append(found, OutboundViolation{Kind: "provider_api_key", Match: m})
		}
	}
	for _, m := range cardCandidateRe.FindAllString(text, -1) {
		digits := digitsOnly(m)
		if len(digits) >= 13 && len(digits) <= 19 && luhnValid(digits) {
			found = append(found, OutboundViolation{Kind: "card_number", Match: m})
		}
	}

	return found
}

func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// luhnValid reports whether a digit string passes the Luhn checksum.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
