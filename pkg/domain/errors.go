package domain

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodePrecondition reports a structural precondition failure (e.g. splitting a non-structured block).
	CodePrecondition Code = "precondition"
	// CodeMismatch reports structurally incompatible operands (e.g. fusing faces of different cardinality).
	CodeMismatch Code = "mismatch"
	// CodeNotFound reports a reference to an entity that is not registered.
	CodeNotFound Code = "not_found"
	// CodeInvalidArgument reports a malformed parameter.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeExternal reports a failure of an external collaborator (oracle, mesher, smoother).
	CodeExternal Code = "external"
	// CodeInvariant reports a programming defect. It is raised with panic.
	CodeInvariant Code = "invariant"
	// CodeState reports engine misuse (nothing to undo, preview in progress).
	CodeState Code = "state"
)

// ErrorClass groups codes into the three propagation classes.
type ErrorClass string

const (
	ClassStructural ErrorClass = "structural"
	ClassExternal   ErrorClass = "external"
	ClassInvariant  ErrorClass = "invariant"
	ClassUsage      ErrorClass = "usage"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Entity names and parameters involved
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks. They match any Error carrying the same code.
var (
	ErrPrecondition     = &Error{Code: CodePrecondition, Message: "structural precondition failed"}
	ErrMismatch         = &Error{Code: CodeMismatch, Message: "structural mismatch"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "entity not found"}
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrExternal         = &Error{Code: CodeExternal, Message: "external collaborator failed"}
	ErrInvariant        = &Error{Code: CodeInvariant, Message: "invariant violated"}
	ErrState            = &Error{Code: CodeState, Message: "invalid engine state"}
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithMetadata returns a copy of e carrying extra key/value context.
func (e *Error) WithMetadata(kv ...string) *Error {
	out := *e
	out.Metadata = make(map[string]string, len(e.Metadata)+len(kv)/2)
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out.Metadata[kv[i]] = kv[i+1]
	}
	return &out
}

// CodeOf extracts the code of the first domain error in the chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// Class maps an error to its propagation class.
// Errors without a domain code are treated as external failures.
func Class(err error) ErrorClass {
	code, ok := CodeOf(err)
	if !ok {
		return ClassExternal
	}
	switch code {
	case CodePrecondition, CodeMismatch, CodeNotFound, CodeInvalidArgument:
		return ClassStructural
	case CodeInvariant:
		return ClassInvariant
	case CodeState:
		return ClassUsage
	default:
		return ClassExternal
	}
}

// Invariantf panics with an invariant error. Callers use it for states that can
// only be reached through a defect in an algorithm.
func Invariantf(format string, args ...any) {
	panic(Newf(CodeInvariant, format, args...))
}
