package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the collector the error occurred
type Phase string

const (
	PhaseRegister  Phase = "register"  // object registration
	PhaseRoot      Phase = "root"      // possible-root tracking
	PhaseView      Phase = "view"      // validated header access
	PhaseTrace     Phase = "trace"     // child discovery via trace functions
	PhaseCollect   Phase = "collect"   // trial-deletion passes
	PhaseWorker    Phase = "worker"    // background worker
	PhaseLifecycle Phase = "lifecycle" // process-wide init/shutdown
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidAlignment Kind = "invalid_alignment"
	KindInvalidSize      Kind = "invalid_size"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindTypeMismatch     Kind = "type_mismatch"
	KindTypeNotFound     Kind = "type_not_found"
	KindResourceLimit    Kind = "resource_limit"
	KindTimeout          Kind = "timeout"
	KindCorruption       Kind = "corruption"
	KindConcurrency      Kind = "concurrency"
	KindInvalidColor     Kind = "invalid_color"
	KindStaleHandle      Kind = "stale_handle"
	KindNotInitialized   Kind = "not_initialized"
	KindInvalidConfig    Kind = "invalid_config"
)

// Error is the structured error type used throughout the collector
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Handle   uint64
	Expected string
	Actual   string
	Limit    string
	Value    uint64
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		fmt.Fprintf(&b, " handle=%#x", e.Handle)
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
		b.WriteString(", got ")
		b.WriteString(e.Actual)
	}

	if e.Limit != "" {
		fmt.Fprintf(&b, ": %s limit reached at %d", e.Limit, e.Value)
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" || e.Limit != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is a collector error of the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending handle
func (b *Builder) Handle(h uint64) *Builder {
	b.err.Handle = h
	return b
}

// Expected sets the expected type or value name
func (b *Builder) Expected(s string) *Builder {
	b.err.Expected = s
	return b
}

// Actual sets the observed type or value name
func (b *Builder) Actual(s string) *Builder {
	b.err.Actual = s
	return b
}

// Limit names the exceeded resource and the value that exceeded it
func (b *Builder) Limit(name string, value uint64) *Builder {
	b.err.Limit = name
	b.err.Value = value
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidAlignment creates an alignment violation error
func InvalidAlignment(phase Phase, handle uint64, offset uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidAlignment,
		Handle: handle,
		Detail: fmt.Sprintf("misaligned access at offset %d", offset),
	}
}

// InvalidSize creates an object size error
func InvalidSize(phase Phase, handle uint64, size, max uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidSize,
		Handle: handle,
		Detail: fmt.Sprintf("object size %d outside (0, %d]", size, max),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, handle uint64, offset, length, size uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Handle: handle,
		Detail: fmt.Sprintf("access of %d bytes at offset %d exceeds size %d", length, offset, size),
	}
}

// TypeMismatch creates a type validation error
func TypeMismatch(phase Phase, handle uint64, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Handle:   handle,
		Expected: expected,
		Actual:   actual,
	}
}

// TypeNotFound creates an unknown type tag error
func TypeNotFound(phase Phase, handle uint64, tag uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeNotFound,
		Handle: handle,
		Detail: fmt.Sprintf("type tag %d not registered", tag),
	}
}

// ResourceLimit creates a resource limit error naming the exceeded ceiling
func ResourceLimit(phase Phase, limit string, value uint64) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindResourceLimit,
		Limit: limit,
		Value: value,
	}
}

// Timeout creates a collection timeout error
func Timeout(phase Phase, elapsed, budget string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTimeout,
		Detail: fmt.Sprintf("collection ran %s, budget %s", elapsed, budget),
	}
}

// Corruption creates a memory corruption error
func Corruption(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCorruption,
		Detail: detail,
	}
}

// Concurrency creates a lock failure error. Lock failures are treated as local
// to the failing call and never propagate to other collector operations.
func Concurrency(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConcurrency,
		Detail: detail,
	}
}

// StaleHandle creates an error for a handle whose generation no longer matches
func StaleHandle(phase Phase, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStaleHandle,
		Handle: handle,
		Detail: "slot generation does not match handle",
	}
}

// NotInitialized creates a not-initialized error for the process-wide collector
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidConfig creates a configuration validation error
func InvalidConfig(detail string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindInvalidConfig,
		Detail: detail,
	}
}
