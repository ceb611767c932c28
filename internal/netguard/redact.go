package netguard

import (
	"encoding/json"
	"strings"
)

// RedactionMarker replaces sensitive values in outbound payloads.
const RedactionMarker = "[REDACTED]"

// sensitiveKeys name credential-bearing fields, matched case-insensitively
// against JSON object keys at any nesting depth. Matching is by whole key
// and by separator segments, never by substring: a key like max_tokens must
// survive untouched even though it contains "token".
var sensitiveKeys = map[string]bool{
	"password": true, "passwd": true, "secret": true, "secrets": true,
	"token": true, "api_key": true, "apikey": true,
	"access_token": true, "accesstoken": true,
	"authorization": true, "auth": true, "bearer": true,
	"session_id": true, "sessionid": true, "cookie": true,
	"private_key": true, "privatekey": true,
	"access_key": true, "accesskey": true,
	"credential": true, "credentials": true, "ssn": true,
}

func keySeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == ' '
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] {
		return true
	}
	segs := strings.FieldsFunc(lower, keySeparator)
	for i, seg := range segs {
		if sensitiveKeys[seg] {
			return true
		}
		// Adjacent pairs so x-api-key matches api_key.
		if i > 0 && sensitiveKeys[segs[i-1]+"_"+seg] {
			return true
		}
	}
	return false
}

// RedactPayload recursively walks decoded JSON structure, replacing any
// value whose key matches the sensitive-key set with the redaction marker.
// The second return reports whether anything was modified so audit logging
// can record that the payload changed.
func RedactPayload(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		modified := false
		for k, inner := range val {
			if isSensitiveKey(k) {
				out[k] = RedactionMarker
				modified = true
				continue
			}
			r, m := RedactPayload(inner)
			out[k] = r
			modified = modified || m
		}
		return out, modified
	case []any:
		out := make([]any, len(val))
		modified := false
		for i, inner := range val {
			r, m := RedactPayload(inner)
			out[i] = r
			modified = modified || m
		}
		return out, modified
	default:
		return v, false
	}
}

// RedactJSON applies RedactPayload to raw JSON bytes. A payload with no
// sensitive keys is returned byte-identical. Non-JSON input is returned
// unchanged: the regex scanner covers free text.
func RedactJSON(raw []byte) ([]byte, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw, false
	}
	redacted, modified := RedactPayload(v)
	if !modified {
		return raw, false
	}
	out, err := json.Marshal(redacted)
	if err != nil {
		return raw, false
	}
	return out, true
}
