package framework

import (
	"errors"
	"fmt"
)

// Contract violations and validity faults.
var (
	// ErrEmptyPrerequisites indicates an explicitly empty prerequisite list.
	ErrEmptyPrerequisites = errors.New("framework: explicitly empty prerequisite list (use NothingTicket)")

	// ErrNothingNotAlone indicates the nothing ticket mixed with other prerequisites.
	ErrNothingNotAlone = errors.New("framework: nothing ticket must be the only prerequisite")

	// ErrUnknownTicket indicates a ticket not known in the system's scope.
	ErrUnknownTicket = errors.New("framework: unknown dependency ticket")

	// ErrIndexOutOfRange indicates an index outside the declared resources.
	ErrIndexOutOfRange = errors.New("framework: index out of range")

	// ErrTypeMismatch indicates a value container of an unexpected concrete type.
	ErrTypeMismatch = errors.New("framework: value type mismatch")

	// ErrInvalidName indicates a system name containing the path delimiter.
	ErrInvalidName = errors.New("framework: invalid system name")

	// ErrDuplicateName indicates two sibling systems with the same name.
	ErrDuplicateName = errors.New("framework: duplicate sibling name")

	// ErrTreeFrozen indicates a modification after a context was allocated.
	ErrTreeFrozen = errors.New("framework: system tree is frozen after context allocation")

	// ErrIncompatibleContext indicates a context that does not belong to the system.
	ErrIncompatibleContext = errors.New("framework: context is not compatible with system")

	// ErrCacheFrozen indicates an out-of-date entry read while the cache is frozen.
	ErrCacheFrozen = errors.New("framework: cache is frozen and entry is out of date")

	// ErrRecursiveEvaluation indicates a calculator that (indirectly) reads its own entry.
	ErrRecursiveEvaluation = errors.New("framework: recursive cache entry evaluation")

	// ErrDimensionMismatch indicates a vector of the wrong size for a source.
	ErrDimensionMismatch = errors.New("framework: dimension mismatch")

	// ErrNilCallback indicates a missing allocator or calculator.
	ErrNilCallback = errors.New("framework: nil allocator or calculator")

	// ErrConstantSubscriber indicates an attempt to make a constant entry depend on something.
	ErrConstantSubscriber = errors.New("framework: constant cache entry cannot subscribe to a source")
)

// Fault is a programmer-contract violation detected by the framework. It
// names the operation and the path of the offending system.
type Fault struct {
	Op     string
	Path   string
	Detail string
	Err    error
}

func (f *Fault) Error() string {
	path := f.Path
	if path == "" {
		path = "<root>"
	}
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s (system %q)", f.Op, f.Err.Error(), path)
	}
	return fmt.Sprintf("%s: %s (system %q): %s", f.Op, f.Err.Error(), path, f.Detail)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func newFault(op string, s *System, err error, format string, args ...any) *Fault {
	f := &Fault{Op: op, Err: err}
	if s != nil {
		f.Path = s.Path()
	}
	if format != "" {
		f.Detail = fmt.Sprintf(format, args...)
	}
	return f
}

// ContextError explains why a context was rejected by a system.
type ContextError struct {
	SystemPath string
	Reason     string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: system %q: %s", ErrIncompatibleContext.Error(), e.SystemPath, e.Reason)
}

func (e *ContextError) Unwrap() error {
	return ErrIncompatibleContext
}
