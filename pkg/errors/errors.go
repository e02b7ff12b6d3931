// Package errors defines custom error types for sc2fix
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// InvalidFormat indicates the file is not a replay (wrong extension)
	InvalidFormat ErrorType = "invalid_format"
	// PatternNotFound indicates the corruption signature is absent from the scan window
	PatternNotFound ErrorType = "pattern_not_found"
	// IOFailure indicates an open/read/create/write failure
	IOFailure ErrorType = "io_failure"
	// AlreadyClaimed indicates another task already owns the path
	AlreadyClaimed ErrorType = "already_claimed"
	// StartFailure indicates a directory watcher could not be started
	StartFailure ErrorType = "start_failure"
	// ConfigError indicates configuration issues
	ConfigError ErrorType = "config"
)

// Sentinels usable with errors.Is. A *FixError matches the sentinel of its Type.
var (
	ErrInvalidFormat   = &FixError{Type: InvalidFormat, Message: "not a replay file"}
	ErrPatternNotFound = &FixError{Type: PatternNotFound, Message: "signature not found"}
	ErrIO              = &FixError{Type: IOFailure, Message: "i/o failure"}
	ErrAlreadyClaimed  = &FixError{Type: AlreadyClaimed, Message: "path already claimed"}
	ErrStartFailure    = &FixError{Type: StartFailure, Message: "watcher start failed"}
)

// FixError is the base error type for all sc2fix errors
type FixError struct {
	Type    ErrorType
	Message string
	Path    string
	Err     error
}

// Error implements the error interface
func (e *FixError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FixError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *FixError of the same Type.
func (e *FixError) Is(target error) bool {
	t, ok := target.(*FixError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a new FixError
func New(errType ErrorType, message, path string, err error) *FixError {
	return &FixError{
		Type:    errType,
		Message: message,
		Path:    path,
		Err:     err,
	}
}

// NewInvalidFormatError creates a new invalid format error
func NewInvalidFormatError(path string) *FixError {
	return New(InvalidFormat, "file is not a SC2Replay file", path, nil)
}

// NewPatternNotFoundError creates a new pattern-not-found error
func NewPatternNotFoundError(path string) *FixError {
	return New(PatternNotFound, "target byte sequence not found, replay probably works", path, nil)
}

// NewIOError creates a new I/O error
func NewIOError(message, path string, err error) *FixError {
	return New(IOFailure, message, path, err)
}

// NewAlreadyClaimedError creates a new already-claimed error
func NewAlreadyClaimedError(path string) *FixError {
	return New(AlreadyClaimed, "path is already being processed", path, nil)
}

// NewStartError creates a new watcher start error
func NewStartError(message, path string, err error) *FixError {
	return New(StartFailure, message, path, err)
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *FixError {
	return New(ConfigError, message, "", err)
}

// TypeOf returns the ErrorType of the first *FixError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var fe *FixError
	if stderrors.As(err, &fe) {
		return fe.Type
	}
	return ""
}

// IsInvalidFormat checks if the error is an invalid format error
func IsInvalidFormat(err error) bool {
	return TypeOf(err) == InvalidFormat
}

// IsPatternNotFound checks if the error is a pattern-not-found error
func IsPatternNotFound(err error) bool {
	return TypeOf(err) == PatternNotFound
}

// IsIOError checks if the error is an I/O error
func IsIOError(err error) bool {
	return TypeOf(err) == IOFailure
}

// IsAlreadyClaimed checks if the error is an already-claimed error
func IsAlreadyClaimed(err error) bool {
	return TypeOf(err) == AlreadyClaimed
}

// IsStartFailure checks if the error is a start failure
func IsStartFailure(err error) bool {
	return TypeOf(err) == StartFailure
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return TypeOf(err) == ConfigError
}
