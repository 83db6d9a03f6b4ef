package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies an error category independently of its message.
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Template errors
	ErrTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrMalformedRule    ErrorCode = "MALFORMED_RULE"

	// Remote execution errors
	ErrTransport ErrorCode = "TRANSPORT"

	// FileSystem errors
	ErrIO         ErrorCode = "IO"
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
)

// DeployError is an error with a stable code and structured details.
type DeployError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DeployError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeployError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DeployError) Is(target error) bool {
	var targetErr *DeployError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

func newError(code ErrorCode, message string, wrapped error) *DeployError {
	return &DeployError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: wrapped,
	}
}

// New creates a DeployError with the given code and message.
func New(code ErrorCode, message string) *DeployError {
	return newError(code, message, nil)
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *DeployError {
	return newError(code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *DeployError {
	if err == nil {
		return nil
	}
	return newError(code, message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DeployError {
	if err == nil {
		return nil
	}
	return newError(code, fmt.Sprintf(format, args...), err)
}

// WithDetail adds a detail to the error
func (e *DeployError) WithDetail(key string, value interface{}) *DeployError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DeployError) WithDetails(details map[string]interface{}) *DeployError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// TemplateNotFound reports that no search directory yielded a match for the
// given patterns.
func TemplateNotFound(patterns ...string) *DeployError {
	joined := strings.Join(patterns, ",")
	return Newf(ErrTemplateNotFound, "unable to find a template file for '%s'", joined).
		WithDetail("pattern", joined)
}

// MalformedRule reports a fixed property directive that could not be parsed.
func MalformedRule(rule, reason string) *DeployError {
	return Newf(ErrMalformedRule, "invalid value '%s' given for '--property': %s", rule, reason).
		WithDetail("rule", rule)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DeployError
func GetErrorCode(err error) ErrorCode {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Code
	}
	return ErrUnknown
}

// ExitCode maps an error to the process exit status: 0 for nil, 2 for
// configuration and input problems, 3 for template problems, 4 for transport
// failures and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetErrorCode(err) {
	case ErrConfigLoad, ErrConfigParse, ErrInvalidInput:
		return 2
	case ErrTemplateNotFound, ErrMalformedRule:
		return 3
	case ErrTransport:
		return 4
	}
	return 1
}

// GetErrorDetails returns the details from an error, or nil if not a DeployError
func GetErrorDetails(err error) map[string]interface{} {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Details
	}
	return nil
}
