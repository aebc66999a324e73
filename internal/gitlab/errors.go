// Package gitlab implements a lazy, paginating client for the GitLab REST
// v4 API, covering the group, project, membership, job, and container
// registry endpoints.
package gitlab

import (
	"errors"
	"fmt"
)

// ErrDone signals the end of a paginated sequence. It is not a failure:
// callers iterate with Next until it is returned.
var ErrDone = errors.New("no more items")

// UnauthorizedError indicates missing or rejected credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// NotFoundError indicates an id or search that resolved to no resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// TransportError indicates a network failure, an undecodable response body,
// or an unexpected HTTP status.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string { return e.Message }

// UsageError indicates a required identifier was missing at the command
// boundary. It is raised before any API request is made.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ErrUnauthorized creates an UnauthorizedError with a formatted message.
func ErrUnauthorized(format string, args ...interface{}) *UnauthorizedError {
	return &UnauthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrTransport creates a TransportError with a formatted message.
func ErrTransport(format string, args ...interface{}) *TransportError {
	return &TransportError{Message: fmt.Sprintf(format, args...)}
}

// ErrUsage creates a UsageError with a formatted message.
func ErrUsage(format string, args ...interface{}) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
