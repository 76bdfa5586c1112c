// Package errors provides standardized error handling for the plaso
// pipeline. It includes error classification, standard error variables
// and helper functions for consistent error wrapping across the system.
//
// The classification mirrors the pipeline's propagation policy: invalid
// errors (bad configuration) propagate to the engine caller, transient
// errors are absorbed and logged at the layer that detects them, and
// fatal errors stop the run.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorTransient represents per-item failures that are logged and
	// absorbed; the surrounding loop continues with the next unit of work.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration.
	// These are the only errors that propagate out of the engine.
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop the run.
	ErrorFatal
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	// Queue errors
	ErrQueueEmpty  = errors.New("queue empty")
	ErrQueueClosed = errors.New("queue closed")
	ErrQueueFull   = errors.New("queue full")
	ErrEndOfInput  = errors.New("end of input")

	// Parser errors
	//
	// ErrWrongFormat is the "not my format" signal. Every parser raises it
	// promptly when handed a file it cannot claim; the worker treats it as
	// expected and logs it at debug level only.
	ErrWrongFormat   = errors.New("wrong format for parser")
	ErrParsingFailed = errors.New("parsing failed")

	// Source and resolution errors
	ErrSourceNotFound       = errors.New("source path not found")
	ErrUnableToOpen         = errors.New("unable to open file entry")
	ErrUnableToOpenFS       = errors.New("unable to open file system")
	ErrPathNotFound         = errors.New("path not found")
	ErrMaximumDepth         = errors.New("maximum nesting depth reached")
	ErrStoreOutOfRange      = errors.New("snapshot store index out of range")
	ErrSnapshotsUnsupported = errors.New("source has no snapshot stores")

	// Preprocessing errors
	ErrPreprocessFail  = errors.New("preprocessing plugin failed")
	ErrAttributeNotSet = errors.New("knowledge base attribute not set")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrStopTimeout    = errors.New("stop timed out")
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error should be absorbed by the detecting layer.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrUnableToOpen) ||
		errors.Is(err, ErrUnableToOpenFS) ||
		errors.Is(err, ErrPreprocessFail) ||
		errors.Is(err, ErrParsingFailed)
}

// IsInvalid checks if an error is due to invalid input or configuration.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrStoreOutOfRange)
}

// IsFatal checks if an error is fatal and should stop the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return false
}

// IsWrongFormat reports whether err is the parser "not my format" signal.
func IsWrongFormat(err error) bool {
	return errors.Is(err, ErrWrongFormat)
}

// Classify returns the error class for an error.
func Classify(err error) ErrorClass {
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// newClassified creates a new classified error.
// Internal helper - use WrapTransient, WrapInvalid or WrapFatal instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// New creates a plain error. Provided so callers do not need to import both
// this package and the standard library errors package.
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
