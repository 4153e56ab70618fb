// Package apperrors defines the error taxonomy shared by the settlement core:
// NotFound, Parameter, Upstream, Conflict and Timeout. Handlers map these to
// HTTP status codes; services return them directly.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a round, campaign or treasury reference that does
// not exist. Terminal; callers should not retry.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NewNotFound formats a NotFoundError.
func NewNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ParameterError indicates invalid input or a data precondition failure, such
// as a round without campaigns or a non-positive matching pool.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string { return e.Msg }

// NewParameter formats a ParameterError.
func NewParameter(format string, args ...any) *ParameterError {
	return &ParameterError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a dependency failure (RPC, block explorer). Callers that
// can produce a degraded partial result absorb it locally.
type UpstreamError struct {
	Msg string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstream wraps err with a message describing the failed dependency call.
func NewUpstream(err error, format string, args ...any) *UpstreamError {
	return &UpstreamError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// ConflictError indicates an execution lock held by another transaction. It is
// surfaced synchronously and never retried by the settlement core.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// NewConflict formats a ConflictError.
func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// TimeoutError indicates a confirmation wait that ran out. The underlying
// chain transaction may still land; this is not equivalent to failure.
type TimeoutError struct {
	Msg string
}

func (e *TimeoutError) Error() string { return e.Msg }

// NewTimeout formats a TimeoutError.
func NewTimeout(format string, args ...any) *TimeoutError {
	return &TimeoutError{Msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsParameter reports whether err is a ParameterError.
func IsParameter(err error) bool {
	var e *ParameterError
	return errors.As(err, &e)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var e *UpstreamError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}
