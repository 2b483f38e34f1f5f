package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDeclare Phase = "declare" // member declaration
	PhaseEncode  Phase = "encode"  // Go to script
	PhaseDecode  Phase = "decode"  // script to Go
	PhaseInvoke  Phase = "invoke"  // handler invocation
	PhaseRuntime Phase = "runtime" // runtime instance lifecycle
	PhaseHost    Phase = "host"    // host object resolution
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindOverflow       Kind = "overflow"
	KindUnsupported    Kind = "unsupported"
	KindNameConflict   Kind = "name_conflict"
	KindRegistration   Kind = "registration"
	KindArity          Kind = "arity"
	KindStaleRuntime   Kind = "stale_runtime"
	KindMissingObject  Kind = "missing_object"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindPanic          Kind = "panic"
	KindClosed         Kind = "closed"
	KindNotInitialized Kind = "not_initialized"
)

// Kind-only sentinels for errors.Is. They match any phase.
var (
	ErrNameConflict   = &Error{Kind: KindNameConflict}
	ErrTypeConversion = &Error{Kind: KindTypeMismatch}
	ErrStaleRuntime   = &Error{Kind: KindStaleRuntime}
	ErrMissingObject  = &Error{Kind: KindMissingObject}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	ScriptType string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ScriptType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ScriptType != "" {
			b.WriteString("expected ")
			b.WriteString(e.GoType)
			b.WriteString(", got ")
			b.WriteString(e.ScriptType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("script type ")
			b.WriteString(e.ScriptType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ScriptType != "" {
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

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// IsKind reports whether any error in err's chain is a bridge error of kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// Expected returns the Go type a conversion wanted.
func (e *Error) Expected() string { return e.GoType }

// Actual returns the script type a conversion received.
func (e *Error) Actual() string { return e.ScriptType }

// WithPath prefixes the path of a bridge error. Other errors are returned unchanged.
func WithPath(err error, prefix ...string) error {
	e, ok := err.(*Error)
	if !ok || len(prefix) == 0 {
		return err
	}
	path := make([]string, 0, len(prefix)+len(e.Path))
	path = append(path, prefix...)
	path = append(path, e.Path...)
	e.Path = path
	return e
}

// Fatal reports whether the error must be surfaced to the caller.
// Stale runtime errors are reported through a side channel instead.
func (e *Error) Fatal() bool {
	return e.Kind != KindStaleRuntime
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

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ScriptType sets the script type name
func (b *Builder) ScriptType(t string) *Builder {
	b.err.ScriptType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// NameConflict creates a declaration error for a member name that is already taken.
func NameConflict(object, name, kind, existing string) *Error {
	return &Error{
		Phase:  PhaseDeclare,
		Kind:   KindNameConflict,
		Path:   []string{object, name},
		Detail: fmt.Sprintf("cannot add %s %q - a %s with that name already exists", kind, name, existing),
	}
}

// TypeConversion creates a conversion error carrying the expected Go type and the
// actual script type.
func TypeConversion(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		Path:       path,
		GoType:     expected,
		ScriptType: actual,
	}
}

// StaleRuntime creates the non-fatal error reported when a scheduled invocation's
// originating runtime no longer exists.
func StaleRuntime(runtime, what string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindStaleRuntime,
		Detail: fmt.Sprintf("runtime %s was destroyed before %s could run", runtime, what),
	}
}

// MissingObject creates an error for a host object that can no longer be located.
func MissingObject(what string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindMissingObject,
		Detail: fmt.Sprintf("%s cannot be located", what),
	}
}

// Arity creates an argument count error
func Arity(path []string, want, got int) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindArity,
		Path:   path,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Panic creates an error for a recovered handler panic.
func Panic(path []string, value any) *Error {
	var msg string
	if err, ok := value.(error); ok {
		msg = err.Error()
	} else if s, ok := value.(string); ok {
		msg = s
	} else {
		msg = fmt.Sprint(value)
	}
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindPanic,
		Path:   path,
		Detail: "panic: " + msg,
		Value:  value,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: what,
		Cause:  cause,
	}
}

// Closed creates an error for an operation on a closed runtime or table.
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}
