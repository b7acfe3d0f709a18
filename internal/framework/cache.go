package framework

import (
	"fmt"
	"time"
)

// AllocFunc returns a new container suitable for holding an entry's value.
// Every call must return the same concrete type.
type AllocFunc func(ctx *Context) AbstractValue

// CalcFunc computes an entry's value from ctx and writes it into value,
// which was produced by the entry's AllocFunc.
type CalcFunc func(ctx *Context, value AbstractValue) error

// CacheEntry is a declared, memoized computation owned by a system.
type CacheEntry struct {
	system        *System
	index         int
	ticket        Ticket
	description   string
	alloc         AllocFunc
	calc          CalcFunc
	prerequisites []Ticket
}

func (e *CacheEntry) System() *System {
	return e.system
}

// Index is the position of the entry within its system; the matching
// CacheEntryValue in a context has the same index.
func (e *CacheEntry) Index() int {
	return e.index
}

func (e *CacheEntry) Ticket() Ticket {
	return e.ticket
}

func (e *CacheEntry) Description() string {
	return e.description
}

// Prerequisites returns the declared prerequisite tickets in order.
func (e *CacheEntry) Prerequisites() []Ticket {
	out := make([]Ticket, len(e.prerequisites))
	copy(out, e.prerequisites)
	return out
}

// IsConstant reports whether the entry was declared with only the nothing
// ticket.
func (e *CacheEntry) IsConstant() bool {
	return len(e.prerequisites) == 1 && e.prerequisites[0] == nothingTicket
}

// Allocate returns a fresh container from the entry's allocator.
func (e *CacheEntry) Allocate(ctx *Context) (AbstractValue, error) {
	v := e.alloc(ctx)
	if v == nil {
		return nil, newFault("Allocate", e.system, ErrNilCallback, "allocator of %q returned nil", e.description)
	}
	return v, nil
}

// EvalAbstract returns the entry's value in ctx, computing it first if it
// is out of date or caching is disabled. The returned container is the
// same object on every call.
func (e *CacheEntry) EvalAbstract(ctx *Context) (AbstractValue, error) {
	if ctx == nil || ctx.system != e.system {
		return nil, e.foreignContext(ctx)
	}
	cv := ctx.cacheValues[e.index]
	if cv.upToDate && (!ctx.cachingDisabled || ctx.cacheFrozen) {
		ctx.stats.hits++
		ctx.root.observer.CacheHit(ctx, e)
		return cv.value, nil
	}
	if ctx.cacheFrozen {
		return nil, newFault("Eval", e.system, ErrCacheFrozen, "entry %q", e.description)
	}
	if cv.calculating {
		return nil, newFault("Eval", e.system, ErrRecursiveEvaluation, "entry %q", e.description)
	}
	if err := e.recompute(ctx, cv); err != nil {
		return nil, err
	}
	return cv.value, nil
}

func (e *CacheEntry) recompute(ctx *Context, cv *CacheEntryValue) error {
	cv.calculating = true
	defer func() { cv.calculating = false }()

	if cv.value == nil {
		v, err := e.Allocate(ctx)
		if err != nil {
			return err
		}
		cv.value = v
	}

	event := ctx.root.nextChangeEvent
	start := time.Now()
	if err := e.calc(ctx, cv.value); err != nil {
		cv.upToDate = false
		return fmt.Errorf("calc %q in %q: %w", e.description, e.system.Path(), err)
	}
	elapsed := time.Since(start)

	// A source changed while calculating; the value may predate it.
	cv.upToDate = ctx.root.nextChangeEvent == event
	cv.serial++
	ctx.graph.trackers[e.ticket].changeCount++
	ctx.stats.recomputes++

	ctx.root.observer.CacheRecompute(ctx, e, elapsed)
	ctx.root.logger.Trace().
		Str("system", ctx.Path()).
		Str("entry", e.description).
		Int64("serial", cv.serial).
		Dur("elapsed", elapsed).
		Msg("cache entry recomputed")
	return nil
}

func (e *CacheEntry) foreignContext(ctx *Context) error {
	if ctx == nil {
		return &ContextError{SystemPath: e.system.Path(), Reason: fmt.Sprintf("nil context for cache entry %q", e.description)}
	}
	return &ContextError{
		SystemPath: e.system.Path(),
		Reason: fmt.Sprintf("cache entry %q evaluated with a context for %s %q",
			e.description, ctx.system.TypeName(), ctx.system.Path()),
	}
}

// Eval returns a copy of the entry's value as T.
func Eval[T any](ctx *Context, e *CacheEntry) (T, error) {
	p, err := EvalRef[T](ctx, e)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// EvalRef returns a pointer into the entry's container. The pointer is
// stable across reads; callers must treat the value as read-only.
func EvalRef[T any](ctx *Context, e *CacheEntry) (*T, error) {
	av, err := e.EvalAbstract(ctx)
	if err != nil {
		return nil, err
	}
	typed, err := ValueAs[T](av)
	if err != nil {
		return nil, newFault("Eval", e.system, err, "entry %q", e.description)
	}
	return typed.Mutable(), nil
}

// CacheEntryValue is the per-context slot of one cache entry.
type CacheEntryValue struct {
	entry       *CacheEntry
	value       AbstractValue
	upToDate    bool
	serial      int64
	calculating bool
}

func (cv *CacheEntryValue) Entry() *CacheEntry {
	return cv.entry
}

func (cv *CacheEntryValue) Description() string {
	return cv.entry.description
}

func (cv *CacheEntryValue) IsUpToDate() bool {
	return cv.upToDate
}

// SerialNumber counts how many times the value has been computed.
func (cv *CacheEntryValue) SerialNumber() int64 {
	return cv.serial
}

// HasValue reports whether the container has been allocated.
func (cv *CacheEntryValue) HasValue() bool {
	return cv.value != nil
}

// Peek returns the current container without computing it. The result is
// nil before the first evaluation and may be stale.
func (cv *CacheEntryValue) Peek() AbstractValue {
	return cv.value
}

func (cv *CacheEntryValue) markOutOfDate() {
	cv.upToDate = false
}
