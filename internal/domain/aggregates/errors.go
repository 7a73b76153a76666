package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across backends.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeNotFound          ErrorCode = "not_found"
	CodeDuplicateIdentity ErrorCode = "duplicate_identity"
	CodeStoreUnavailable  ErrorCode = "store_unavailable"
	CodeConflict          ErrorCode = "conflict"
	CodeInternal          ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// InvalidArgument reports a failed precondition on a named argument.
func InvalidArgument(op, arg, reason string) error {
	return NewError(CodeInvalidArgument, op, fmt.Sprintf("%s %s", arg, reason), nil)
}

// NotFound reports a missing aggregate.
func NotFound(op string, id fmt.Stringer) error {
	return NewError(CodeNotFound, op, fmt.Sprintf("element not found with id: %s", id), nil)
}

// DuplicateIdentity reports an insert of an identity that is already stored.
func DuplicateIdentity(op string, id fmt.Stringer) error {
	return NewError(CodeDuplicateIdentity, op, fmt.Sprintf("element already exists with id: %s", id), nil)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}
