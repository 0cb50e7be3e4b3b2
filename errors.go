package taskflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --- Planning errors ---

// ErrValidation reports a malformed input (missing required field, bad ID).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// ErrCycle reports a directed cycle in the dependency graph. TaskID names a
// task on the cycle.
type ErrCycle struct {
	TaskID string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("dependency cycle detected at task %q", e.TaskID)
}

// ErrScheduling reports a CPM result with negative total float (the schedule
// cannot be met). Raised only in strict mode; otherwise the result is flagged.
type ErrScheduling struct {
	TaskID     string
	TotalFloat float64
}

func (e *ErrScheduling) Error() string {
	return fmt.Sprintf("infeasible schedule: task %q has total float %.2fh", e.TaskID, e.TotalFloat)
}

// --- Gateway errors ---

// ErrLLM reports a provider-side failure that is not an HTTP status error
// (marshal failures, malformed bodies, transport setup).
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is an HTTP error from a provider. RetryAfter is parsed from the
// Retry-After header when present (429/503 responses).
type ErrHTTP struct {
	Provider   string
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrExhausted reports that every routing candidate failed. Last carries the
// final candidate's underlying error.
type ErrExhausted struct {
	Candidates []string // model IDs in the order they were tried
	Last       error
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("all %d candidates exhausted (%s): %v",
		len(e.Candidates), strings.Join(e.Candidates, ", "), e.Last)
}

func (e *ErrExhausted) Unwrap() error { return e.Last }

// --- Classification helpers ---

// IsAuthError reports whether err is a 401/403 from a provider. Auth errors
// are never retried within the same provider.
func IsAuthError(err error) bool {
	var e *ErrHTTP
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403)
}

// IsRateLimitError reports whether err is a 429 from a provider.
func IsRateLimitError(err error) bool {
	var e *ErrHTTP
	return errors.As(err, &e) && e.Status == 429
}

// IsRetryable reports whether err may succeed on retry: rate limits, 5xx
// responses, timeouts, and transport failures. Auth errors and malformed
// requests are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) {
		return httpErr.Status == 429 || httpErr.Status >= 500
	}
	var llmErr *ErrLLM
	if errors.As(err, &llmErr) {
		// Transport-level failures (connection reset, DNS) surface as ErrLLM
		// from the adapters and are worth retrying.
		return true
	}
	return false
}

// StatusOf extracts the HTTP status code from an ErrHTTP, or 0.
func StatusOf(err error) int {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// RetryAfterOf extracts the Retry-After duration from an ErrHTTP, or 0.
func RetryAfterOf(err error) time.Duration {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header value. Only the delta-seconds
// form is supported; HTTP-date values return 0.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
