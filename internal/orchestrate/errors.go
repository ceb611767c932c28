package orchestrate

import "fmt"

// SecurityViolationError is a terminal refusal: the command or plan step
// violated a safety rule. It must never be retried automatically.
type SecurityViolationError struct {
	Reason   string
	Severity string
}

func (e *SecurityViolationError) Error() string {
	return fmt.Sprintf("security violation (%s): %s", e.Severity, e.Reason)
}

// RetryableError wraps a transient failure. Callers may retry the
// operation; the wrapped cause is reachable with errors.Is/As.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s failed (retryable): %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }
