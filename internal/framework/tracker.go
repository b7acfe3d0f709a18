package framework

// Tracker is the per-context bookkeeping object for one ticket. It counts
// value changes and forwards invalidation to its subscribers.
type Tracker struct {
	ticket      Ticket
	description string
	owner       *Context

	// cacheValue is set when the tracker represents a cache entry.
	cacheValue *CacheEntryValue

	prerequisites []*Tracker
	subscribers   []*Tracker

	changeCount     int64
	lastChangeEvent int64
}

func newTracker(owner *Context, ticket Ticket, description string) *Tracker {
	return &Tracker{
		ticket:          ticket,
		description:     description,
		owner:           owner,
		lastChangeEvent: -1,
	}
}

func (t *Tracker) Ticket() Ticket {
	return t.ticket
}

func (t *Tracker) Description() string {
	return t.description
}

// ChangeCount is the number of change notifications this tracker has
// received plus the number of recomputations of its cache entry, if any.
func (t *Tracker) ChangeCount() int64 {
	return t.changeCount
}

// Prerequisites lists the trackers this one subscribes to. After
// composition wiring these may belong to other contexts.
func (t *Tracker) Prerequisites() []*Tracker {
	out := make([]*Tracker, len(t.prerequisites))
	copy(out, t.prerequisites)
	return out
}

func (t *Tracker) Subscribers() []*Tracker {
	out := make([]*Tracker, len(t.subscribers))
	copy(out, t.subscribers)
	return out
}

// Context returns the context owning the tracker.
func (t *Tracker) Context() *Context {
	return t.owner
}

// subscribeTo makes t a downstream subscriber of upstream. Duplicate edges
// are ignored.
func (t *Tracker) subscribeTo(upstream *Tracker) {
	for _, p := range t.prerequisites {
		if p == upstream {
			return
		}
	}
	t.prerequisites = append(t.prerequisites, upstream)
	upstream.subscribers = append(upstream.subscribers, t)
}

// noteValueChange records that the represented value changed as part of
// changeEvent and invalidates everything downstream. A tracker visited
// twice in the same event stops there, which makes diamonds and cycles
// terminate. It returns the number of trackers newly reached.
func (t *Tracker) noteValueChange(changeEvent int64) int {
	if t.lastChangeEvent == changeEvent {
		return 0
	}
	t.lastChangeEvent = changeEvent
	t.changeCount++
	if t.cacheValue != nil {
		t.cacheValue.markOutOfDate()
	}
	reached := 1
	for _, sub := range t.subscribers {
		reached += sub.noteValueChange(changeEvent)
	}
	return reached
}

// trackerGraph owns the trackers of one context, indexed by ticket.
type trackerGraph struct {
	trackers []*Tracker
}

func (g *trackerGraph) get(t Ticket) *Tracker {
	if t < 0 || int(t) >= len(g.trackers) {
		return nil
	}
	return g.trackers[t]
}

// wireWellKnown creates the fixed intra-context edges between well-known
// trackers and from declared resources into their aggregates.
func (g *trackerGraph) wireWellKnown(s *System) {
	sub := func(down Ticket, ups ...Ticket) {
		for _, up := range ups {
			g.trackers[down].subscribeTo(g.trackers[up])
		}
	}

	sub(xcTicket, qTicket, vTicket, zTicket)
	for _, r := range s.discreteStates {
		sub(xdTicket, r.ticket)
	}
	for _, r := range s.abstractStates {
		sub(xaTicket, r.ticket)
	}
	sub(xTicket, xcTicket, xdTicket, xaTicket)
	sub(configurationTicket, qTicket)
	sub(velocityTicket, vTicket)
	sub(kinematicsTicket, configurationTicket, velocityTicket)
	for _, r := range s.parameters {
		sub(allParametersTicket, r.ticket)
	}
	for _, r := range s.inputPorts {
		sub(allInputPortsTicket, r.ticket)
	}
	sub(allSourcesTicket, timeTicket, accuracyTicket, xTicket, allParametersTicket, allInputPortsTicket)
	sub(xdhatTicket, allSourcesTicket)
	if s.derivatives != nil {
		sub(xcdotTicket, s.derivatives.ticket)
	} else {
		sub(xcdotTicket, allSourcesTicket)
	}
}

// wireCacheEntries subscribes every cache entry tracker to its declared
// prerequisites. The nothing ticket yields no edge.
func (g *trackerGraph) wireCacheEntries(s *System) {
	for _, e := range s.cacheEntries {
		down := g.trackers[e.ticket]
		for _, p := range e.prerequisites {
			if p == nothingTicket {
				continue
			}
			down.subscribeTo(g.trackers[p])
		}
	}
}
