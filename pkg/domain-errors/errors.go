// Package derrors defines the domain error envelope shared by all modules.
//
// Services translate sentinel errors from stores and transport failures from
// clients into these coded errors; the HTTP layer maps codes onto status
// codes. Codes are stable strings so callers (and tests) can branch on them
// without string-matching messages.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error.
type Code string

// Generic codes shared across modules.
const (
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Domain codes for the GTIN lifecycle. Grouped by the module that raises them.
const (
	// Codec.
	CodeInvalidLength   Code = "invalid_length"
	CodeInvalidChecksum Code = "invalid_checksum"

	// Allocator.
	CodeRangeNotFound       Code = "range_not_found"
	CodeExhausted           Code = "exhausted"
	CodeDuplicateIdentifier Code = "duplicate_identifier"

	// Reference data validation.
	CodeValidationFailed Code = "validation_failed"

	// Registry client.
	CodeAuthFailed         Code = "auth_failed"
	CodeNetwork            Code = "network"
	CodeRegistryRejected   Code = "registry_rejected"
	CodeInvocationNotFound Code = "invocation_not_found"
)

// Error is the uniform error envelope returned by public service operations.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			break
		}
	}
	return false
}

// CodeOf returns the outermost domain code, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code onto the HTTP status the transport layer
// should return. Retryable transport failures map to 502/504 style codes so
// callers can distinguish "registry side effect unknown" from local rejects.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidLength, CodeInvalidChecksum, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeRangeNotFound, CodeInvocationNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateIdentifier, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnauthorized, CodeAuthFailed:
		return http.StatusUnauthorized
	case CodeExhausted:
		return http.StatusInsufficientStorage
	case CodeRegistryRejected:
		return http.StatusBadGateway
	case CodeNetwork:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
