// Package etlerrors provides structured error handling for the pipeline with
// error categorization, key-value details and stack traces.
//
// # Overview
//
// Every stage of the pipeline classifies its failures with an ErrorType:
//
//	ConfigError          ErrorTypeConfig
//	ReadError            ErrorTypeNotFound, ErrorTypeMalformed, ErrorTypeUnsupported, ErrorTypeInternal
//	MergeError           ErrorTypeMerge
//	SinkError            ErrorTypeSaveFailed, ErrorTypeUnsupportedFormat, ErrorTypeConnection, ErrorTypeLoadFailed
//
// Only ErrorTypeConfig is allowed to abort a run. All other errors are logged
// by the stage that produced them and folded into an empty result.
//
// # Basic Usage
//
//	err := etlerrors.New(etlerrors.ErrorTypeUnsupported, "unsupported source format").
//	    WithDetail("format", "xml")
//
//	if _, err := os.Open(path); err != nil {
//	    return etlerrors.Wrap(err, etlerrors.ErrorTypeNotFound, "source file not found").
//	        WithDetail("path", path)
//	}
//
// # Thread Safety
//
// Error instances are not safe for concurrent modification. Call WithDetail
// before sharing an error across goroutines.
package etlerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents unexpected failures
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors, the only fatal kind
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeNotFound represents a missing source file
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeMalformed represents source content that cannot be decoded
	ErrorTypeMalformed ErrorType = "malformed"
	// ErrorTypeUnsupported represents an unknown source format tag
	ErrorTypeUnsupported ErrorType = "unsupported"
	// ErrorTypeMerge represents join failures
	ErrorTypeMerge ErrorType = "merge"
	// ErrorTypeSaveFailed represents file sink write failures
	ErrorTypeSaveFailed ErrorType = "save_failed"
	// ErrorTypeUnsupportedFormat represents an unknown output format or database type
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	// ErrorTypeConnection represents database connection failures
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeLoadFailed represents failures while replacing a table
	ErrorTypeLoadFailed ErrorType = "load_failed"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: categorizes the error
//   - Message: human-readable description
//   - Cause: the underlying error, if any
//   - Details: key-value pairs for logging
//   - Stack: call stack at the point of creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// String renders the frame as "function file:line".
func (f StackFrame) String() string {
	return fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// StackTrace returns the captured frames rendered one per entry.
func (e *Error) StackTrace() []string {
	out := make([]string, len(e.Stack))
	for i, f := range e.Stack {
		out[i] = f.String()
	}
	return out
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a type and message. If err is already an
// *Error its stack is preserved. Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost *Error in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// KindOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal for foreign errors. It returns "" for a nil error.
func KindOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// IsFatal reports whether err must abort a pipeline run.
func IsFatal(err error) bool {
	return IsType(err, ErrorTypeConfig)
}

// captureStack captures the current call stack, skipping the given number of
// frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
