package client

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrUnauthorized is returned when the server rejects the credential (HTTP 401).
	// The stored credential has already been cleared when this is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork is matched by NetworkError.
	ErrNetwork = errors.New("network error")

	// ErrRequestFailed is matched by RequestError.
	ErrRequestFailed = errors.New("request failed")

	// ErrValidation is the parent of every input rejected before a request is made.
	ErrValidation = errors.New("validation error")
)

// RequestError is a non-2xx response other than 401.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// NetworkError is a transport failure where no HTTP response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ServerMessage returns the server supplied error message carried by err, if any.
func ServerMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return ""
}
