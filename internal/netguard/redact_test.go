package netguard

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRedactPayloadNestedKey(t *testing.T) {
	payload := map[string]any{
		"query": "weather",
		"meta": map[string]any{
			"client": map[string]any{
				"api_key": "sk-verysecret",
			},
		},
	}
	out, modified := RedactPayload(payload)
	if !modified {
		t.Fatal("expected didRedact = true")
	}
	m := out.(map[string]any)["meta"].(map[string]any)["client"].(map[string]any)
	if m["api_key"] != RedactionMarker {
		t.Errorf("expected marker, got %v", m["api_key"])
	}
}

func TestRedactPayloadCaseInsensitive(t *testing.T) {
	payload := map[string]any{"Authorization": "Bearer abc", "AccessToken": "xyz"}
	out, modified := RedactPayload(payload)
	if !modified {
		t.Fatal("expected redaction")
	}
	m := out.(map[string]any)
	if m["Authorization"] != RedactionMarker || m["AccessToken"] != RedactionMarker {
		t.Errorf("expected both keys redacted: %v", m)
	}
}

func TestRedactPayloadInsideArray(t *testing.T) {
	payload := []any{
		map[string]any{"name": "a"},
		map[string]any{"password": "hunter2"},
	}
	out, modified := RedactPayload(payload)
	if !modified {
		t.Fatal("expected redaction inside array")
	}
	if out.([]any)[1].(map[string]any)["password"] != RedactionMarker {
		t.Error("password not redacted")
	}
}

func TestRedactJSONClean(t *testing.T) {
	raw := []byte(`{"query":"weather","city":"boston"}`)
	out, modified := RedactJSON(raw)
	if modified {
		t.Error("expected didRedact = false for clean payload")
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("clean payload must be byte-identical: %s", out)
	}
}

func TestRedactJSONModified(t *testing.T) {
	raw := []byte(`{"outer":{"session_id":"abc123"}}`)
	out, modified := RedactJSON(raw)
	if !modified {
		t.Fatal("expected redaction")
	}
	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("redacted output is not valid JSON: %v", err)
	}
	if v["outer"].(map[string]any)["session_id"] != RedactionMarker {
		t.Error("session_id not redacted")
	}
}

func TestRedactJSONLeavesGenerationParams(t *testing.T) {
	// Keys that merely contain a sensitive word as a substring are request
	// parameters, not credentials, and must survive byte-identical.
	raw := []byte(`{"max_tokens":1024,"model":"m","temperature":0.2,"authority":"us-east"}`)
	out, modified := RedactJSON(raw)
	if modified {
		t.Errorf("expected no redaction, got %s", out)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("payload must be byte-identical: %s", out)
	}
}

func TestRedactPayloadSeparatedSegments(t *testing.T) {
	// Segment matching still catches credentials under composed keys.
	payload := map[string]any{"x-api-key": "sk-abc", "user.password": "p"}
	out, modified := RedactPayload(payload)
	if !modified {
		t.Fatal("expected redaction")
	}
	m := out.(map[string]any)
	if m["x-api-key"] != RedactionMarker || m["user.password"] != RedactionMarker {
		t.Errorf("expected both keys redacted: %v", m)
	}
}

func TestRedactJSONNonJSON(t *testing.T) {
	raw := []byte("plain text, not json")
	out, modified := RedactJSON(raw)
	if modified || !bytes.Equal(out, raw) {
		t.Error("non-JSON input must pass through unchanged")
	}
}
