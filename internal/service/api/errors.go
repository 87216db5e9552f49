package api

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload marks a 2xx response whose body did not match the contract.
var ErrMalformedPayload = errors.New("malformed response payload")

// NetworkError reports that the service could not be reached or timed out.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: service unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError reports a reachable service that answered with a non-success
// status or an invalid payload.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Op, e.Message, e.StatusCode, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Detail returns the text worth showing to a user: the server's own error
// message when it sent one.
func (e *ServiceError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Kind classifies err for logging only; callers must not branch on it.
func Kind(err error) string {
	var netErr *NetworkError
	var svcErr *ServiceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &svcErr):
		return "service"
	default:
		return "unknown"
	}
}
