package framework

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observer receives cache traffic from a context tree.
type Observer interface {
	CacheHit(ctx *Context, entry *CacheEntry)
	CacheRecompute(ctx *Context, entry *CacheEntry, elapsed time.Duration)
	ValueChanged(ctx *Context, ticket Ticket, reached int)
}

type nopObserver struct{}

func (nopObserver) CacheHit(*Context, *CacheEntry) {}

func (nopObserver) CacheRecompute(*Context, *CacheEntry, time.Duration) {}

func (nopObserver) ValueChanged(*Context, Ticket, int) {}

// ContextOption configures a context tree at allocation.
type ContextOption func(*contextOptions)

type contextOptions struct {
	logger          zerolog.Logger
	observer        Observer
	cachingDisabled bool
}

// WithLogger sets the logger used by the whole context tree.
func WithLogger(l zerolog.Logger) ContextOption {
	return func(o *contextOptions) { o.logger = l }
}

// WithObserver installs an observer for the whole context tree.
func WithObserver(obs Observer) ContextOption {
	return func(o *contextOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithCachingDisabled allocates the tree with caching disabled.
func WithCachingDisabled() ContextOption {
	return func(o *contextOptions) { o.cachingDisabled = true }
}

// CacheStats summarizes cache traffic.
type CacheStats struct {
	Hits          int64 `json:"hits"`
	Recomputes    int64 `json:"recomputes"`
	Notifications int64 `json:"notifications"`
	Invalidations int64 `json:"invalidations"`
}

func (s CacheStats) add(o CacheStats) CacheStats {
	return CacheStats{
		Hits:          s.Hits + o.Hits,
		Recomputes:    s.Recomputes + o.Recomputes,
		Notifications: s.Notifications + o.Notifications,
		Invalidations: s.Invalidations + o.Invalidations,
	}
}

type contextStats struct {
	hits          int64
	recomputes    int64
	notifications int64
	invalidations int64
}

// Context is the runtime counterpart of one System: value sources, cache
// values and trackers, plus one subcontext per child system.
type Context struct {
	id       uuid.UUID
	system   *System
	systemID uuid.UUID

	parent      *Context
	root        *Context
	subcontexts []*Context

	graph       trackerGraph
	cacheValues []*CacheEntryValue

	time        float64
	accuracy    float64
	hasAccuracy bool
	xc          Vector
	discrete    []Vector
	abstract    []AbstractValue
	parameters  []Vector
	inputs      []AbstractValue

	cachingDisabled bool
	cacheFrozen     bool
	stats           contextStats

	// Root-only fields.
	nextChangeEvent int64
	logger          zerolog.Logger
	observer        Observer
}

// AllocateContext returns a new context tree for s and its subtree. The
// system tree is frozen from then on. Only intra-context dependencies are
// wired; see WireSubcontextSources and SubscribeToSubcontext for
// composition.
func (s *System) AllocateContext(opts ...ContextOption) *Context {
	o := contextOptions{logger: zerolog.Nop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	s.tree.frozen = true
	ctx := s.allocate(nil)
	ctx.logger = o.logger
	ctx.observer = o.observer
	if o.cachingDisabled {
		ctx.DisableCaching()
	}

	ctx.logger.Debug().
		Str("system", s.Path()).
		Str("type", s.TypeName()).
		Str("context_id", ctx.id.String()).
		Int("subcontexts", len(ctx.subcontexts)).
		Int("tickets", s.NumTickets()).
		Int("cache_entries", s.NumCacheEntries()).
		Msg("context allocated")
	return ctx
}

func (s *System) allocate(parent *Context) *Context {
	ctx := &Context{
		id:       uuid.New(),
		system:   s,
		systemID: s.id,
		parent:   parent,
	}
	if parent == nil {
		ctx.root = ctx
	} else {
		ctx.root = parent.root
		ctx.time = parent.time
		ctx.accuracy, ctx.hasAccuracy = parent.accuracy, parent.hasAccuracy
	}

	for _, child := range s.Subsystems() {
		ctx.subcontexts = append(ctx.subcontexts, child.allocate(ctx))
	}

	ctx.allocateSources()
	ctx.allocateTrackers()
	return ctx
}

func (c *Context) allocateSources() {
	s := c.system
	c.xc = make(Vector, s.nq+s.nv+s.nz)
	for _, r := range s.discreteStates {
		c.discrete = append(c.discrete, r.vector.Clone())
	}
	for _, r := range s.abstractStates {
		c.abstract = append(c.abstract, r.model.Clone())
	}
	for _, r := range s.parameters {
		c.parameters = append(c.parameters, r.vector.Clone())
	}
	for _, r := range s.inputPorts {
		c.inputs = append(c.inputs, r.model.Clone())
	}
}

func (c *Context) allocateTrackers() {
	s := c.system
	c.graph.trackers = make([]*Tracker, s.NumTickets())
	for t := Ticket(0); t < NextAvailableTicket; t++ {
		c.graph.trackers[t] = newTracker(c, t, t.String())
	}
	for i, r := range s.discreteStates {
		c.graph.trackers[r.ticket] = newTracker(c, r.ticket, "discrete state group "+strconv.Itoa(i))
	}
	for i, r := range s.abstractStates {
		c.graph.trackers[r.ticket] = newTracker(c, r.ticket, "abstract state "+strconv.Itoa(i))
	}
	for i, r := range s.parameters {
		c.graph.trackers[r.ticket] = newTracker(c, r.ticket, "parameter group "+strconv.Itoa(i))
	}
	for _, r := range s.inputPorts {
		c.graph.trackers[r.ticket] = newTracker(c, r.ticket, "input port "+r.name)
	}

	c.cacheValues = make([]*CacheEntryValue, len(s.cacheEntries))
	for i, e := range s.cacheEntries {
		cv := &CacheEntryValue{entry: e}
		c.cacheValues[i] = cv
		tr := newTracker(c, e.ticket, "cache entry: "+e.description)
		tr.cacheValue = cv
		c.graph.trackers[e.ticket] = tr
	}

	c.graph.wireWellKnown(s)
	c.graph.wireCacheEntries(s)
}

func (c *Context) ID() uuid.UUID {
	return c.id
}

// System returns the system this context was allocated from.
func (c *Context) System() *System {
	return c.system
}

// Path is the path of the context's system.
func (c *Context) Path() string {
	return c.system.Path()
}

// Parent returns the enclosing context, or nil at the root.
func (c *Context) Parent() *Context {
	return c.parent
}

func (c *Context) Root() *Context {
	return c.root
}

func (c *Context) NumSubcontexts() int {
	return len(c.subcontexts)
}

// Subcontext returns the context of child system i. It panics if i is out
// of range.
func (c *Context) Subcontext(i int) *Context {
	if i < 0 || i >= len(c.subcontexts) {
		panic(newFault("Subcontext", c.system, ErrIndexOutOfRange, "index %d, have %d", i, len(c.subcontexts)))
	}
	return c.subcontexts[i]
}

// Tracker returns the tracker for t, or nil if t is not in scope.
func (c *Context) Tracker(t Ticket) *Tracker {
	return c.graph.get(t)
}

// CacheValue returns the slot for cache entry index. It panics if the
// index is out of range.
func (c *Context) CacheValue(index int) *CacheEntryValue {
	if index < 0 || index >= len(c.cacheValues) {
		panic(newFault("CacheValue", c.system, ErrIndexOutOfRange, "index %d, have %d", index, len(c.cacheValues)))
	}
	return c.cacheValues[index]
}

// Logger returns the tree's logger.
func (c *Context) Logger() zerolog.Logger {
	return c.root.logger
}

// Walk calls fn for c and every subcontext in pre-order.
func (c *Context) Walk(fn func(*Context)) {
	fn(c)
	for _, sub := range c.subcontexts {
		sub.Walk(fn)
	}
}

// Stats aggregates cache traffic over c and its subcontexts.
func (c *Context) Stats() CacheStats {
	var total CacheStats
	c.Walk(func(ctx *Context) {
		total = total.add(CacheStats{
			Hits:          ctx.stats.hits,
			Recomputes:    ctx.stats.recomputes,
			Notifications: ctx.stats.notifications,
			Invalidations: ctx.stats.invalidations,
		})
	})
	return total
}

// DisableCaching makes every cache read in the subtree recompute
// unconditionally. Results must match the cached path exactly.
func (c *Context) DisableCaching() {
	c.Walk(func(ctx *Context) { ctx.cachingDisabled = true })
}

// EnableCaching undoes DisableCaching for the subtree. Entries computed
// while caching was disabled remain up to date.
func (c *Context) EnableCaching() {
	c.Walk(func(ctx *Context) { ctx.cachingDisabled = false })
}

func (c *Context) IsCachingDisabled() bool {
	return c.cachingDisabled
}

// FreezeCache forbids recomputation in the subtree: up-to-date values are
// returned, out-of-date reads fail with ErrCacheFrozen.
func (c *Context) FreezeCache() {
	c.Walk(func(ctx *Context) { ctx.cacheFrozen = true })
}

func (c *Context) UnfreezeCache() {
	c.Walk(func(ctx *Context) { ctx.cacheFrozen = false })
}

func (c *Context) IsCacheFrozen() bool {
	return c.cacheFrozen
}

func (c *Context) startNewChangeEvent() int64 {
	c.root.nextChangeEvent++
	return c.root.nextChangeEvent
}

// NotifyValueChanged records that the source named by t changed and
// invalidates every tracker downstream of it.
func (c *Context) NotifyValueChanged(t Ticket) error {
	if c.graph.get(t) == nil {
		return newFault("NotifyValueChanged", c.system, ErrUnknownTicket, "ticket %d", int(t))
	}
	c.noteChanged(c.startNewChangeEvent(), t)
	return nil
}

// noteChanged notifies the given tickets as part of one change event.
func (c *Context) noteChanged(event int64, tickets ...Ticket) {
	for _, t := range tickets {
		reached := c.graph.trackers[t].noteValueChange(event)
		c.stats.notifications++
		c.stats.invalidations += int64(reached)
		c.root.observer.ValueChanged(c, t, reached)
		c.root.logger.Trace().
			Str("system", c.Path()).
			Stringer("ticket", t).
			Int64("event", event).
			Int("reached", reached).
			Msg("value changed")
	}
}

// WireSubcontextSources subscribes c's aggregate source trackers (q, v, z,
// xd, xa, all parameters, all input ports) to the same trackers of every
// subcontext, so parent entries depending on them see child changes. It
// is an explicit composition step and is never done at allocation.
func (c *Context) WireSubcontextSources() {
	aggregates := []Ticket{qTicket, vTicket, zTicket, xdTicket, xaTicket, allParametersTicket, allInputPortsTicket}
	for _, sub := range c.subcontexts {
		for _, t := range aggregates {
			c.graph.trackers[t].subscribeTo(sub.graph.trackers[t])
		}
	}
}

// SubscribeToSubcontext makes tracker t of c depend on tracker childTicket
// of subcontext child.
func (c *Context) SubscribeToSubcontext(child int, childTicket, t Ticket) error {
	const op = "SubscribeToSubcontext"
	if child < 0 || child >= len(c.subcontexts) {
		return newFault(op, c.system, ErrIndexOutOfRange, "subcontext %d, have %d", child, len(c.subcontexts))
	}
	sub := c.subcontexts[child]
	up := sub.graph.get(childTicket)
	if up == nil {
		return newFault(op, sub.system, ErrUnknownTicket, "ticket %d", int(childTicket))
	}
	down := c.graph.get(t)
	if down == nil {
		return newFault(op, c.system, ErrUnknownTicket, "ticket %d", int(t))
	}
	if t == nothingTicket || (down.cacheValue != nil && down.cacheValue.entry.IsConstant()) {
		return newFault(op, c.system, ErrConstantSubscriber, "ticket %d", int(t))
	}
	down.subscribeTo(up)
	return nil
}
