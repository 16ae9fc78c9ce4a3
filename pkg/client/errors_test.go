package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "open circuit should not retry", errorClass: ErrorClassCircuitOpen, expected: false},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestAPIError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{
		StatusCode: 0,
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		Err:        inner,
	}

	want := "catalog network error (status 0): request failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	wrapped := fmt.Errorf("fetch page: %w", err)
	if got := ClassOf(wrapped); got != ErrorClassNetwork {
		t.Errorf("ClassOf(wrapped) = %q, want %q", got, ErrorClassNetwork)
	}
	if got := ClassOf(inner); got != "" {
		t.Errorf("ClassOf(plain error) = %q, want empty", got)
	}

	noInner := &APIError{StatusCode: 404, ErrorClass: ErrorClassClient, Message: "404 Not Found"}
	if got := noInner.Error(); got != "catalog client error (status 404): 404 Not Found" {
		t.Errorf("Error() = %q", got)
	}
}
