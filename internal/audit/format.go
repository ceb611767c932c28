package audit

import (
	"fmt"
	"strings"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders entries as a human-readable text timeline.
func FormatTimeline(entries []Entry) string {
	if len(entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder
	b.WriteString(separator + "\n")
	for _, e := range entries {
		detail := e.Reason
		if detail == "" {
			detail = e.Host
		}
		ref := e.PlanID
		if ref == "" {
			ref = e.Source
		}
		b.WriteString(fmt.Sprintf("%-24s %-26s %-14s %s\n",
			e.Timestamp, e.Event, truncate(ref, 14), truncate(detail, 48)))
	}
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("%d entries\n", len(entries)))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
