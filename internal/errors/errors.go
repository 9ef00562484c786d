package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input to an operation
	ErrorTypeValidation
	// Parse errors - a source unit could not be parsed
	ErrorTypeParse
	// Storage errors - snapshot store or cache failures
	ErrorTypeStorage
	// FileSystem errors - file I/O failures
	ErrorTypeFileSystem
	// External errors - graph store or other collaborator failures
	ErrorTypeExternal
	// Internal errors - pipeline contract violations
	ErrorTypeInternal
	// NotFound errors - a requested entity or snapshot does not exist
	ErrorTypeNotFound
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - skip and continue
	SeverityLow Severity = iota
	// SeverityMedium - degraded result
	SeverityMedium
	// SeverityHigh - the operation failed
	SeverityHigh
	// SeverityCritical - indicates a bug in the pipeline itself
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches another *Error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Type, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}

	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "Stack trace:\n%s\n", e.StackTrace)
	}

	return sb.String()
}

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeParse:
		return "PARSE"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeExternal:
		return "EXTERNAL"
	case ErrorTypeInternal:
		return "INTERNAL"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, fn.Name())
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(3),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(3),
	}
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// ParseError wraps a per-unit parse failure. Low severity: the batch continues.
func ParseError(err error, path string) *Error {
	e := Wrap(err, ErrorTypeParse, SeverityLow, fmt.Sprintf("parse %s", path))
	if e == nil {
		return nil
	}
	return e.WithContext("path", path)
}

// StorageError wraps a snapshot store or cache error
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityHigh, message)
}

// FileSystemError wraps a filesystem error
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, message)
}

// ExternalError wraps a collaborator failure
func ExternalError(err error, message string) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, message)
}

// InternalErrorf creates a contract-violation error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// NotFoundErrorf reports a missing entity or snapshot
func NotFoundErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeNotFound, SeverityMedium, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of an error, defaulting to internal
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries the given type anywhere in its chain
func IsType(err error, errType ErrorType) bool {
	return stderrors.Is(err, &Error{Type: errType})
}
