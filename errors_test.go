package taskflow

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7", 7 * time.Second},
		{" 30 ", 30 * time.Second},
		{"0", 0},
		{"", 0},
		{"-5", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0}, // HTTP-date form unsupported
		{"soon", 0},
	}
	for _, tc := range cases {
		if got := ParseRetryAfter(tc.in); got != tc.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	auth := &ErrHTTP{Provider: "openai", Status: 401, Body: "bad key"}
	rate := &ErrHTTP{Provider: "openai", Status: 429}
	server := &ErrHTTP{Provider: "openai", Status: 503}
	client := &ErrHTTP{Provider: "openai", Status: 400}
	transport := &ErrLLM{Provider: "openai", Message: "connection reset"}

	if !IsAuthError(auth) || IsAuthError(rate) {
		t.Error("IsAuthError misclassified")
	}
	if !IsRateLimitError(rate) || IsRateLimitError(server) {
		t.Error("IsRateLimitError misclassified")
	}
	if !IsRetryable(rate) || !IsRetryable(server) || !IsRetryable(transport) {
		t.Error("retryable errors misclassified")
	}
	if IsRetryable(auth) || IsRetryable(client) || IsRetryable(nil) {
		t.Error("non-retryable errors misclassified")
	}
}

func TestErrorClassification_Wrapped(t *testing.T) {
	inner := &ErrHTTP{Provider: "openai", Status: 429, RetryAfter: 5 * time.Second}
	wrapped := &ErrExhausted{Candidates: []string{"p1"}, Last: inner}

	if !IsRateLimitError(wrapped) {
		t.Error("classification must unwrap ErrExhausted")
	}
	if StatusOf(wrapped) != 429 {
		t.Errorf("StatusOf = %d, want 429", StatusOf(wrapped))
	}
	if RetryAfterOf(wrapped) != 5*time.Second {
		t.Errorf("RetryAfterOf = %v, want 5s", RetryAfterOf(wrapped))
	}

	var httpErr *ErrHTTP
	if !errors.As(wrapped, &httpErr) {
		t.Fatal("errors.As must reach the inner ErrHTTP")
	}
}

func TestErrorMessages(t *testing.T) {
	e := &ErrHTTP{Provider: "anthropic", Status: 500, Body: "overloaded"}
	if msg := e.Error(); !strings.Contains(msg, "anthropic") || !strings.Contains(msg, "500") {
		t.Errorf("ErrHTTP message = %q", msg)
	}

	ex := &ErrExhausted{Candidates: []string{"a", "b"}, Last: e}
	if msg := ex.Error(); !strings.Contains(msg, "a, b") || !strings.Contains(msg, "2 candidates") {
		t.Errorf("ErrExhausted message = %q", msg)
	}

	cyc := &ErrCycle{TaskID: "T1"}
	if !strings.Contains(cyc.Error(), "T1") {
		t.Errorf("ErrCycle message = %q", cyc.Error())
	}

	sched := &ErrScheduling{TaskID: "T2", TotalFloat: -1.5}
	if !strings.Contains(sched.Error(), "T2") || !strings.Contains(sched.Error(), "-1.50") {
		t.Errorf("ErrScheduling message = %q", sched.Error())
	}
}

func TestStatusOf_NonHTTP(t *testing.T) {
	if StatusOf(errors.New("plain")) != 0 {
		t.Error("plain errors have no status")
	}
	if RetryAfterOf(nil) != 0 {
		t.Error("nil error has no retry-after")
	}
}
