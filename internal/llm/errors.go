package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind classifies why a provider call failed. The kind decides
// whether a retry can help.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureRateLimit FailureKind = "rate_limited"
	FailureAuth      FailureKind = "auth_invalid"
	FailureMalformed FailureKind = "malformed_response"
	FailureNetwork   FailureKind = "network_error"
)

// ProviderError wraps a failed inference call with its classification.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed. Auth and
// malformed-response failures are permanent.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureRateLimit, FailureNetwork:
		return true
	}
	return false
}

func newProviderError(provider string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusTooManyRequests:
		return FailureRateLimit
	case status >= 500:
		return FailureNetwork
	default:
		return FailureMalformed
	}
}

// classifyTransport maps a transport-level error to a failure kind.
func classifyTransport(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
