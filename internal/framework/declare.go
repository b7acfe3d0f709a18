package framework

// DeclareOption configures a cache entry declaration.
type DeclareOption func(*declareOptions)

type declareOptions struct {
	prerequisites    []Ticket
	hasPrerequisites bool
}

// WithPrerequisites lists every ticket the calculator may read. Without
// this option an entry depends on AllSourcesTicket. Passing no tickets is
// an error; use NothingTicket for a constant entry.
func WithPrerequisites(tickets ...Ticket) DeclareOption {
	return func(o *declareOptions) {
		o.prerequisites = append([]Ticket(nil), tickets...)
		o.hasPrerequisites = true
	}
}

// DeclareCacheEntry registers a new cache entry, assigns its index and
// ticket, and returns it. The returned pointer is stable.
//
// Prerequisites must be accurate or conservative: the framework cannot
// detect a calculator reading an undeclared source. Evaluating with
// caching disabled must give identical results.
func (s *System) DeclareCacheEntry(description string, alloc AllocFunc, calc CalcFunc, opts ...DeclareOption) (*CacheEntry, error) {
	const op = "DeclareCacheEntry"
	if s.tree.frozen {
		return nil, newFault(op, s, ErrTreeFrozen, "entry %q", description)
	}
	if alloc == nil || calc == nil {
		return nil, newFault(op, s, ErrNilCallback, "entry %q", description)
	}

	o := declareOptions{prerequisites: []Ticket{allSourcesTicket}}
	for _, opt := range opts {
		opt(&o)
	}
	prereqs, err := s.normalizePrerequisites(o.prerequisites)
	if err != nil {
		return nil, newFault(op, s, err, "entry %q", description)
	}

	e := &CacheEntry{
		system:        s,
		index:         len(s.cacheEntries),
		ticket:        s.tickets.allocate(),
		description:   description,
		alloc:         alloc,
		calc:          calc,
		prerequisites: prereqs,
	}
	s.cacheEntries = append(s.cacheEntries, e)
	return e, nil
}

// normalizePrerequisites validates a prerequisite list and removes
// duplicates, keeping first occurrences in order.
func (s *System) normalizePrerequisites(tickets []Ticket) ([]Ticket, error) {
	if len(tickets) == 0 {
		return nil, ErrEmptyPrerequisites
	}
	out := make([]Ticket, 0, len(tickets))
	seen := make(map[Ticket]bool, len(tickets))
	for _, t := range tickets {
		if !s.tickets.known(t) {
			return nil, ErrUnknownTicket
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if seen[nothingTicket] && len(out) > 1 {
		return nil, ErrNothingNotAlone
	}
	return out, nil
}

// typedCalc adapts a typed calculator to CalcFunc.
func typedCalc[T any](s *System, description string, calc func(*Context, *T) error) CalcFunc {
	return func(ctx *Context, value AbstractValue) error {
		typed, err := ValueAs[T](value)
		if err != nil {
			return newFault("Calc", s, err, "entry %q", description)
		}
		return calc(ctx, typed.Mutable())
	}
}

// DeclareMakeCacheEntry declares an entry whose allocator calls make for
// every new context.
func DeclareMakeCacheEntry[T any](s *System, description string, newValue func(*Context) T, calc func(*Context, *T) error, opts ...DeclareOption) (*CacheEntry, error) {
	if newValue == nil || calc == nil {
		return nil, newFault("DeclareCacheEntry", s, ErrNilCallback, "entry %q", description)
	}
	alloc := func(ctx *Context) AbstractValue {
		return NewValue(newValue(ctx))
	}
	return s.DeclareCacheEntry(description, alloc, typedCalc(s, description, calc), opts...)
}

// DeclareModelCacheEntry declares an entry whose allocator copies model by
// assignment. Use DeclareCloneableCacheEntry for types holding references.
func DeclareModelCacheEntry[T any](s *System, description string, model T, calc func(*Context, *T) error, opts ...DeclareOption) (*CacheEntry, error) {
	if calc == nil {
		return nil, newFault("DeclareCacheEntry", s, ErrNilCallback, "entry %q", description)
	}
	prototype := NewValue(model)
	alloc := func(*Context) AbstractValue {
		return prototype.Clone()
	}
	return s.DeclareCacheEntry(description, alloc, typedCalc(s, description, calc), opts...)
}

// DeclareCloneableCacheEntry declares an entry whose allocator deep-copies
// model with its Clone method.
func DeclareCloneableCacheEntry[T Cloner[T]](s *System, description string, model T, calc func(*Context, *T) error, opts ...DeclareOption) (*CacheEntry, error) {
	if calc == nil {
		return nil, newFault("DeclareCacheEntry", s, ErrNilCallback, "entry %q", description)
	}
	prototype := NewCloneableValue(model)
	alloc := func(*Context) AbstractValue {
		return prototype.Clone()
	}
	return s.DeclareCacheEntry(description, alloc, typedCalc(s, description, calc), opts...)
}

// DeclareZeroCacheEntry declares an entry whose model is the zero value of
// T, created once.
func DeclareZeroCacheEntry[T any](s *System, description string, calc func(*Context, *T) error, opts ...DeclareOption) (*CacheEntry, error) {
	var model T
	return DeclareModelCacheEntry(s, description, model, calc, opts...)
}

// DeclareContinuousState sets the sizes of q, v and z. It may be called
// again before allocation to change them.
func (s *System) DeclareContinuousState(nq, nv, nz int) error {
	const op = "DeclareContinuousState"
	if s.tree.frozen {
		return newFault(op, s, ErrTreeFrozen, "")
	}
	if nq < 0 || nv < 0 || nz < 0 {
		return newFault(op, s, ErrDimensionMismatch, "negative size (%d, %d, %d)", nq, nv, nz)
	}
	s.nq, s.nv, s.nz = nq, nv, nz
	return nil
}

// ContinuousStateSizes returns the declared sizes of q, v and z.
func (s *System) ContinuousStateSizes() (nq, nv, nz int) {
	return s.nq, s.nv, s.nz
}

func (s *System) declareResource(op string, list *[]resource, r resource) (int, error) {
	if s.tree.frozen {
		return 0, newFault(op, s, ErrTreeFrozen, "")
	}
	r.ticket = s.tickets.allocate()
	*list = append(*list, r)
	return len(*list) - 1, nil
}

// DeclareDiscreteState adds a numeric discrete state group initialized to
// model and returns its index.
func (s *System) DeclareDiscreteState(model Vector) (int, error) {
	return s.declareResource("DeclareDiscreteState", &s.discreteStates, resource{vector: model.Clone()})
}

// DeclareAbstractState adds an abstract state variable initialized to a
// clone of model and returns its index.
func (s *System) DeclareAbstractState(model AbstractValue) (int, error) {
	if model == nil {
		return 0, newFault("DeclareAbstractState", s, ErrNilCallback, "nil model")
	}
	return s.declareResource("DeclareAbstractState", &s.abstractStates, resource{model: model.Clone()})
}

// DeclareNumericParameter adds a numeric parameter group initialized to
// model and returns its index.
func (s *System) DeclareNumericParameter(model Vector) (int, error) {
	return s.declareResource("DeclareNumericParameter", &s.parameters, resource{vector: model.Clone()})
}

// DeclareInputPort adds an input port whose value is fixed in the context,
// initially a clone of model, and returns its index.
func (s *System) DeclareInputPort(name string, model AbstractValue) (int, error) {
	if model == nil {
		return 0, newFault("DeclareInputPort", s, ErrNilCallback, "port %q: nil model", name)
	}
	return s.declareResource("DeclareInputPort", &s.inputPorts, resource{name: name, model: model.Clone()})
}

// DeclareTimeDerivatives declares the cache entry holding xcdot, sized to
// the continuous state. The well-known xcdot ticket then depends on it.
func (s *System) DeclareTimeDerivatives(calc func(ctx *Context, xcdot Vector) error, opts ...DeclareOption) (*CacheEntry, error) {
	if s.derivatives != nil {
		return nil, newFault("DeclareTimeDerivatives", s, ErrDuplicateName, "time derivatives already declared")
	}
	if calc == nil {
		return nil, newFault("DeclareTimeDerivatives", s, ErrNilCallback, "")
	}
	newValue := func(*Context) Vector {
		return make(Vector, s.nq+s.nv+s.nz)
	}
	e, err := DeclareMakeCacheEntry(s, "time derivatives", newValue, func(ctx *Context, out *Vector) error {
		return calc(ctx, *out)
	}, opts...)
	if err != nil {
		return nil, err
	}
	s.derivatives = e
	return e, nil
}

func (s *System) NumDiscreteStates() int    { return len(s.discreteStates) }
func (s *System) NumAbstractStates() int    { return len(s.abstractStates) }
func (s *System) NumNumericParameters() int { return len(s.parameters) }
func (s *System) NumInputPorts() int        { return len(s.inputPorts) }

func (s *System) resourceTicket(op string, list []resource, i int) Ticket {
	if i < 0 || i >= len(list) {
		panic(newFault(op, s, ErrIndexOutOfRange, "index %d, have %d", i, len(list)))
	}
	return list[i].ticket
}

// DiscreteStateTicket returns the ticket of discrete group i. It panics if
// i is out of range.
func (s *System) DiscreteStateTicket(i int) Ticket {
	return s.resourceTicket("DiscreteStateTicket", s.discreteStates, i)
}

// AbstractStateTicket returns the ticket of abstract state i. It panics if
// i is out of range.
func (s *System) AbstractStateTicket(i int) Ticket {
	return s.resourceTicket("AbstractStateTicket", s.abstractStates, i)
}

// NumericParameterTicket returns the ticket of parameter group i. It
// panics if i is out of range.
func (s *System) NumericParameterTicket(i int) Ticket {
	return s.resourceTicket("NumericParameterTicket", s.parameters, i)
}

// InputPortTicket returns the ticket of input port i. It panics if i is
// out of range.
func (s *System) InputPortTicket(i int) Ticket {
	return s.resourceTicket("InputPortTicket", s.inputPorts, i)
}

// InputPortName returns the name given to input port i.
func (s *System) InputPortName(i int) string {
	if i < 0 || i >= len(s.inputPorts) {
		panic(newFault("InputPortName", s, ErrIndexOutOfRange, "index %d, have %d", i, len(s.inputPorts)))
	}
	return s.inputPorts[i].name
}
