package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the short machine tag surfaced on job records and in
// synchronous error bodies.
type ErrorCode string

const (
	ErrUploadTooManyFiles ErrorCode = "UPLOAD_TOO_MANY_FILES"
	ErrUploadTooLarge     ErrorCode = "UPLOAD_TOO_LARGE"
	ErrUploadInvalidMagic ErrorCode = "UPLOAD_INVALID_MAGIC"
	ErrUploadBadType      ErrorCode = "UPLOAD_BAD_TYPE"
	ErrBadPayload         ErrorCode = "BAD_PAYLOAD"
	ErrPathEscape         ErrorCode = "PATH_ESCAPE"
	ErrInvalidPassword    ErrorCode = "INVALID_PASSWORD"
	ErrRemoteURLDisabled  ErrorCode = "REMOTE_URL_DISABLED"
	ErrToolUnavailable    ErrorCode = "TOOL_UNAVAILABLE"
	ErrToolTimeout        ErrorCode = "TOOL_TIMEOUT"
	ErrToolFailed         ErrorCode = "TOOL_FAILED"
	ErrToolOutputOverflow ErrorCode = "TOOL_OUTPUT_OVERFLOW"
	ErrRepairFailed       ErrorCode = "REPAIR_FAILED"
	ErrJobTimeout         ErrorCode = "JOB_TIMEOUT"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError carries an ErrorCode next to a human-readable message. The
// message must already be safe to show to a client: no passwords, no raw
// tool output.
type CodedError struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *CodedError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *CodedError) Unwrap() error { return e.cause }

// Coded builds a CodedError with a formatted message.
func Coded(code ErrorCode, format string, v ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, v...)}
}

// CodedFrom attaches a code to an underlying error while keeping the chain
// intact for errors.Is/As.
func CodedFrom(code ErrorCode, cause error, format string, v ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, v...), cause: cause}
}

// CodeOf extracts the ErrorCode from anywhere in the chain. Anything
// uncoded is INTERNAL.
func CodeOf(err error) ErrorCode {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrInternal
}

// HTTPStatus maps a code to the status used when the error surfaces
// synchronously (validator, rate limiter, enqueue).
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrUploadTooManyFiles, ErrUploadTooLarge, ErrUploadInvalidMagic,
		ErrUploadBadType, ErrBadPayload, ErrInvalidPassword, ErrRemoteURLDisabled:
		return http.StatusBadRequest
	case ErrPathEscape:
		return http.StatusForbidden
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
