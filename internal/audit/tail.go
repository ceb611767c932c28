package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Tail reads the last n entries of a JSONL audit log, optionally
// filtered to a single event type (empty event means all). Malformed
// lines abort the read; a log that fails to parse should be verified,
// not skimmed.
func Tail(path string, n int, event Event) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("audit: parse line %d: %w", lineNum, err)
		}
		if event != "" && e.Event != event {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
