// Package remote implements a cached, rate-limited JSON-RPC client for
// an upstream Ethereum node, plus the adapters that let the state and
// blockchain layers read through it.
package remote

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	// ErrNotFound reports a lookup the upstream answered with null.
	ErrNotFound = errors.New("remote: not found")

	// ErrClosed reports a call on a closed client.
	ErrClosed = errors.New("remote: client closed")
)

// HTTPError reports a non-2xx HTTP response from the upstream node.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote: http status %s", e.Status)
}

// MethodError reports a JSON-RPC error returned for a specific method.
type MethodError struct {
	Method  string
	Code    int
	Message string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("remote: %s failed: %s (code %d)", e.Method, e.Message, e.Code)
}

// ParseError reports a malformed response payload.
type ParseError struct {
	Method string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("remote: %s returned malformed payload: %v", e.Method, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError reports a network-level failure; the only retryable class.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote: %s transport failure: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
