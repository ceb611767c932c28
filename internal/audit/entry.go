package audit

// Event names every observable decision the core makes. The set is
// closed: consumers switch over it, so additions are API changes.
type Event string

const (
	EventCommandReceived       Event = "commandReceived"
	EventSanitizationTriggered Event = "sanitizationTriggered"
	EventPlanProposed          Event = "planProposed"
	EventPlanRefined           Event = "planRefined"
	EventPlanPreempted         Event = "planPreempted"
	EventCircuitTripped        Event = "networkCircuitTripped"
	EventCircuitClosed         Event = "networkCircuitClosed"
	EventSecurityViolation     Event = "securityViolationDetected"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	Event     Event  `json:"event"`
	// Source is the surface the triggering command arrived from.
	Source string `json:"source,omitempty"`
	// PlanID ties plan lifecycle events together.
	PlanID string `json:"plan_id,omitempty"`
	// Host carries the endpoint for network events.
	Host string `json:"host,omitempty"`
	// Severity is set for sanitization and violation events.
	Severity string `json:"severity,omitempty"`
	Reason   string `json:"reason,omitempty"`
	PrevHash string `json:"prev_hash"`
}
