package world

import (
	"fmt"

	"gridarena.ai/internal/protocol"
)

// ValidationError reports a rejected command. It never leaves partial state behind.
type ValidationError struct {
	Code    string // protocol E_* code
	Field   string // the input that failed the check
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches any ValidationError carrying the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

func newValidationError(code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrBadRequest    = &ValidationError{Code: protocol.ErrBadRequest}
	ErrBadMove       = &ValidationError{Code: protocol.ErrBadMove}
	ErrBadCode       = &ValidationError{Code: protocol.ErrBadCode}
	ErrUnknownRobot  = &ValidationError{Code: protocol.ErrUnknownRobot}
	ErrNotRunning    = &ValidationError{Code: protocol.ErrNotRunning}
	ErrIntentPending = &ValidationError{Code: protocol.ErrIntentPending}
)

// ErrorCode returns the protocol code of err, or E_INTERNAL for foreign errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if v, ok := err.(*ValidationError); ok {
		return v.Code
	}
	return protocol.ErrInternal
}
