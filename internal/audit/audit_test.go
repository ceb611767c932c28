package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLog(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "audit.jsonl")
}

func TestRecordChainsEntries(t *testing.T) {
	path := tempLog(t)
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	entries := []Entry{
		{Event: EventCommandReceived, Source: "voice-assistant"},
		{Event: EventPlanProposed, PlanID: "p-1"},
		{Event: EventPlanRefined, PlanID: "p-1"},
	}
	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain invalid: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 3 {
		t.Errorf("lines = %d, want 3", result.Lines)
	}
}

func TestReopenRecoversChainTail(t *testing.T) {
	path := tempLog(t)

	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(Entry{Event: EventCommandReceived}); err != nil {
		t.Fatal(err)
	}
	log.Close()

	// A second session must continue the chain, not restart at genesis.
	log, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(Entry{Event: EventPlanPreempted, PlanID: "p-2"}); err != nil {
		t.Fatal(err)
	}
	log.Close()

	if result := Verify(path); !result.Valid {
		t.Fatalf("chain broken across sessions: %s", result.Error)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := tempLog(t)
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Record(Entry{Event: EventCircuitTripped, Host: "api.example.com"}); err != nil {
			t.Fatal(err)
		}
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "api.example.com", "api.evil.com", 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	result := Verify(path)
	if result.Valid {
		t.Fatal("tampered log verified as valid")
	}
	if result.ErrorLine != 2 {
		t.Errorf("broken link at line %d, want 2", result.ErrorLine)
	}
}

func TestNilLogIsNoop(t *testing.T) {
	var log *Log
	if err := log.Record(Entry{Event: EventCommandReceived}); err != nil {
		t.Fatalf("nil log record: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("nil log close: %v", err)
	}
}

func TestTailFiltersAndLimits(t *testing.T) {
	path := tempLog(t)
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := log.Record(Entry{Event: EventCommandReceived, Source: "internal"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := log.Record(Entry{Event: EventSecurityViolation, Reason: "destructive step without vault reference"}); err != nil {
		t.Fatal(err)
	}
	log.Close()

	all, err := Tail(path, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Errorf("all entries = %d, want 6", len(all))
	}

	last2, err := Tail(path, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(last2) != 2 || last2[1].Event != EventSecurityViolation {
		t.Errorf("tail 2 = %+v", last2)
	}

	violations, err := Tail(path, 0, EventSecurityViolation)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 {
		t.Errorf("filtered entries = %d, want 1", len(violations))
	}
}

func TestFormatTimeline(t *testing.T) {
	out := FormatTimeline([]Entry{
		{Timestamp: "2026-01-02T03:04:05.000Z", Event: EventPlanProposed, PlanID: "p-1"},
		{Timestamp: "2026-01-02T03:04:06.000Z", Event: EventCircuitTripped, Host: "api.example.com"},
	})
	if !strings.Contains(out, "planProposed") || !strings.Contains(out, "api.example.com") {
		t.Errorf("timeline missing fields:\n%s", out)
	}
	if FormatTimeline(nil) != "No entries found.\n" {
		t.Error("empty timeline")
	}
}
