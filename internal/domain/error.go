package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error. The HTTP layer maps each to a status;
// the code also decides whether the message is safe to surface.
const (
	ECONFLICT     = "conflict"     // duplicate resource, e.g. email already registered
	EINTERNAL     = "internal"     // unexpected failure, details stay in the logs
	EINVALID      = "invalid"      // rejected input
	ENOTFOUND     = "not_found"    // no such resource
	EUNAUTHORIZED = "unauthorized" // authentication required
	EFORBIDDEN    = "forbidden"    // authenticated but not permitted
	ERATELIMIT    = "rate_limit"   // client exceeded request budget
	EUNAVAILABLE  = "unavailable"  // registration backend unreachable
	EBUSY         = "busy"         // an operation is already in flight for this session
)

// SubmitErrorKey is the reserved field-error key for failures of a
// side-effecting transition (registration, terminal completion). Renderers
// show it as a banner rather than an inline field message.
const SubmitErrorKey = "submit"

// Error is the application error type. Code drives machine handling,
// Message is user-facing, Op locates the failure for logs, and Err keeps
// the wrapped cause for errors.Is chains.
type Error struct {
	Code    string
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns err's code, "" for nil, and EINTERNAL for foreign
// error types.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

const internalMessage = "An internal error occurred. Please try again later."

// ErrorMessage returns the user-facing message for err. Internal and
// foreign errors get a generic message; their detail belongs in logs, not
// responses.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorOp returns the operation recorded on err, if any.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Errorf builds an *Error with a formatted message.
func Errorf(code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code, op, and user-facing message to err. Nil in,
// nil out.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// IsCode reports whether err carries the given code. Foreign errors read
// as EINTERNAL, matching ErrorCode.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// FieldErrors maps field names to user-facing messages. A nil or empty map
// means validation passed. Step validators return FieldErrors instead of
// error so a failed check is data, not a control-flow exception.
type FieldErrors map[string]string

// Clone returns an independent copy of e. A nil receiver yields nil.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ValidationError reports the field failures that blocked a transition.
type ValidationError struct {
	Fields FieldErrors
	Op     string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation failed for %d fields", len(e.Fields))
	if len(e.Fields) == 1 {
		for field, m := range e.Fields {
			msg = fmt.Sprintf("%s: %s", field, m)
		}
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns err's field map, or nil when err is not a
// ValidationError.
func GetValidationFields(err error) FieldErrors {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// Constructors for the common cases.

func NotFound(op, resource, identifier string) error {
	return &Error{Code: ENOTFOUND, Op: op, Message: fmt.Sprintf("%s not found: %s", resource, identifier)}
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Internal wraps err as EINTERNAL. ErrorMessage hides the detail; logs get
// the full chain.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}
