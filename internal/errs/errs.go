// Package errs defines the typed error taxonomy shared across the
// recipe build pipeline.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which stage of the pipeline produced an error.
type Kind string

const (
	KindRecipeParse      Kind = "recipe_parse"
	KindShellEvaluation  Kind = "shell_evaluation"
	KindFetch            Kind = "fetch"
	KindChecksumMismatch Kind = "checksum_mismatch"
	KindExtract          Kind = "extract"
	KindBuildScript      Kind = "build_script"
	KindArchiveWrite     Kind = "archive_write"
	KindHook             Kind = "hook"
	KindCanceled         Kind = "canceled"
)

// Error is the common shape for every error the pipeline returns.
// It carries enough structured context for callers to log or retry
// without parsing message strings.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Operation string
	Context   map[string]any
}

// New creates an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a Kind and message to an existing error.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Kind == other.Kind
}

// WithContext attaches a key/value pair and returns the receiver for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// WithOperation records which function/phase raised the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// Of reports whether err (or anything it wraps) carries the given Kind.
func Of(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Kind == kind {
			return true
		}

		err = e.Cause
	}

	return false
}
