package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream API returned an error
	ErrExternal = errors.New("external service error")
)

// Chat pipeline errors

var (
	// ErrInvalidRequest indicates a malformed client request (no user message, empty body)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstreamUnavailable indicates the LLM backend is unreachable
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")

	// ErrToolLoopExceeded indicates the agent hit the tool-call round cap
	ErrToolLoopExceeded = errors.New("tool call loop limit exceeded")
)

// Tool registry errors

var (
	// ErrUnknownTool indicates a tool name is not registered
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool indicates a tool name is already registered
	ErrDuplicateTool = errors.New("duplicate tool registration")
)

// Image task errors

var (
	// ErrUnknownTask indicates an image task id is not in the store
	ErrUnknownTask = errors.New("unknown image task")
)

// Market data errors

var (
	// ErrProviderUnavailable indicates a data provider is not configured or down
	ErrProviderUnavailable = errors.New("market data provider unavailable")

	// ErrInvalidSymbol indicates an unrecognized ticker symbol
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// UserMessage maps an error chain to short text safe to show users or feed
// back to the model. Internal detail never leaks through here.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSymbol):
		return "unknown or unsupported symbol"
	case errors.Is(err, ErrRateLimitExceeded):
		return "data provider rate limit reached, try again shortly"
	case errors.Is(err, ErrProviderUnavailable):
		return "market data provider is unreachable"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "the assistant backend is temporarily unavailable"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRequest):
		return "invalid request parameters"
	case errors.Is(err, ErrTimeout):
		return "the operation timed out"
	default:
		return "an internal error occurred"
	}
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
