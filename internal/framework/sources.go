package framework

import "reflect"

// Time returns the context's time.
func (c *Context) Time() float64 {
	return c.time
}

// SetTime sets time in the whole tree c belongs to, whichever context it
// is called on. All contexts change in the same event.
func (c *Context) SetTime(t float64) {
	event := c.startNewChangeEvent()
	c.root.Walk(func(ctx *Context) {
		ctx.time = t
		ctx.noteChanged(event, timeTicket)
	})
}

// Accuracy returns the requested accuracy and whether one was set.
func (c *Context) Accuracy() (float64, bool) {
	return c.accuracy, c.hasAccuracy
}

// SetAccuracy sets accuracy in the whole tree c belongs to.
func (c *Context) SetAccuracy(a float64) {
	event := c.startNewChangeEvent()
	c.root.Walk(func(ctx *Context) {
		ctx.accuracy, ctx.hasAccuracy = a, true
		ctx.noteChanged(event, accuracyTicket)
	})
}

// ContinuousState returns a copy of q, v and z concatenated.
func (c *Context) ContinuousState() Vector {
	return c.xc.Clone()
}

// Q returns a copy of the configuration variables.
func (c *Context) Q() Vector {
	return c.xc[:c.system.nq].Clone()
}

// V returns a copy of the velocity variables.
func (c *Context) V() Vector {
	nq, nv := c.system.nq, c.system.nv
	return c.xc[nq : nq+nv].Clone()
}

// Z returns a copy of the miscellaneous continuous variables.
func (c *Context) Z() Vector {
	nq, nv := c.system.nq, c.system.nv
	return c.xc[nq+nv:].Clone()
}

// SetContinuousState replaces q, v and z at once.
func (c *Context) SetContinuousState(x Vector) error {
	if len(x) != len(c.xc) {
		return newFault("SetContinuousState", c.system, ErrDimensionMismatch, "got %d elements, want %d", len(x), len(c.xc))
	}
	copy(c.xc, x)
	c.noteChanged(c.startNewChangeEvent(), qTicket, vTicket, zTicket)
	return nil
}

func (c *Context) setSegment(op string, t Ticket, offset, n int, x Vector) error {
	if len(x) != n {
		return newFault(op, c.system, ErrDimensionMismatch, "got %d elements, want %d", len(x), n)
	}
	copy(c.xc[offset:offset+n], x)
	c.noteChanged(c.startNewChangeEvent(), t)
	return nil
}

func (c *Context) SetQ(q Vector) error {
	return c.setSegment("SetQ", qTicket, 0, c.system.nq, q)
}

func (c *Context) SetV(v Vector) error {
	return c.setSegment("SetV", vTicket, c.system.nq, c.system.nv, v)
}

func (c *Context) SetZ(z Vector) error {
	s := c.system
	return c.setSegment("SetZ", zTicket, s.nq+s.nv, s.nz, z)
}

// DiscreteState returns a copy of discrete group i.
func (c *Context) DiscreteState(i int) (Vector, error) {
	if i < 0 || i >= len(c.discrete) {
		return nil, newFault("DiscreteState", c.system, ErrIndexOutOfRange, "group %d, have %d", i, len(c.discrete))
	}
	return c.discrete[i].Clone(), nil
}

// SetDiscreteState replaces discrete group i; the size is fixed by the
// declaration.
func (c *Context) SetDiscreteState(i int, x Vector) error {
	const op = "SetDiscreteState"
	if i < 0 || i >= len(c.discrete) {
		return newFault(op, c.system, ErrIndexOutOfRange, "group %d, have %d", i, len(c.discrete))
	}
	if len(x) != len(c.discrete[i]) {
		return newFault(op, c.system, ErrDimensionMismatch, "group %d: got %d elements, want %d", i, len(x), len(c.discrete[i]))
	}
	copy(c.discrete[i], x)
	c.noteChanged(c.startNewChangeEvent(), c.system.discreteStates[i].ticket)
	return nil
}

// AbstractState returns a clone of abstract state i.
func (c *Context) AbstractState(i int) (AbstractValue, error) {
	if i < 0 || i >= len(c.abstract) {
		return nil, newFault("AbstractState", c.system, ErrIndexOutOfRange, "index %d, have %d", i, len(c.abstract))
	}
	return c.abstract[i].Clone(), nil
}

// MutableAbstractState notifies abstract state i as changed and returns the
// container the context owns, for editing in place. Edits made after a
// later cache read are not seen; call it again for every edit.
func (c *Context) MutableAbstractState(i int) (AbstractValue, error) {
	if i < 0 || i >= len(c.abstract) {
		return nil, newFault("MutableAbstractState", c.system, ErrIndexOutOfRange, "index %d, have %d", i, len(c.abstract))
	}
	c.noteChanged(c.startNewChangeEvent(), c.system.abstractStates[i].ticket)
	return c.abstract[i], nil
}

// SetAbstractState stores a clone of v as abstract state i. v must have
// the declared concrete type.
func (c *Context) SetAbstractState(i int, v AbstractValue) error {
	const op = "SetAbstractState"
	if i < 0 || i >= len(c.abstract) {
		return newFault(op, c.system, ErrIndexOutOfRange, "index %d, have %d", i, len(c.abstract))
	}
	if !sameType(v, c.abstract[i]) {
		return newFault(op, c.system, ErrTypeMismatch, "index %d: want %s", i, c.abstract[i].TypeName())
	}
	c.abstract[i] = v.Clone()
	c.noteChanged(c.startNewChangeEvent(), c.system.abstractStates[i].ticket)
	return nil
}

// NumericParameter returns a copy of parameter group i.
func (c *Context) NumericParameter(i int) (Vector, error) {
	if i < 0 || i >= len(c.parameters) {
		return nil, newFault("NumericParameter", c.system, ErrIndexOutOfRange, "group %d, have %d", i, len(c.parameters))
	}
	return c.parameters[i].Clone(), nil
}

// SetNumericParameter replaces parameter group i.
func (c *Context) SetNumericParameter(i int, p Vector) error {
	const op = "SetNumericParameter"
	if i < 0 || i >= len(c.parameters) {
		return newFault(op, c.system, ErrIndexOutOfRange, "group %d, have %d", i, len(c.parameters))
	}
	if len(p) != len(c.parameters[i]) {
		return newFault(op, c.system, ErrDimensionMismatch, "group %d: got %d elements, want %d", i, len(p), len(c.parameters[i]))
	}
	copy(c.parameters[i], p)
	c.noteChanged(c.startNewChangeEvent(), c.system.parameters[i].ticket)
	return nil
}

// InputPort returns a clone of the value fixed on input port i.
func (c *Context) InputPort(i int) (AbstractValue, error) {
	if i < 0 || i >= len(c.inputs) {
		return nil, newFault("InputPort", c.system, ErrIndexOutOfRange, "port %d, have %d", i, len(c.inputs))
	}
	return c.inputs[i].Clone(), nil
}

// FixInputPort stores a clone of v as the value of input port i.
func (c *Context) FixInputPort(i int, v AbstractValue) error {
	const op = "FixInputPort"
	if i < 0 || i >= len(c.inputs) {
		return newFault(op, c.system, ErrIndexOutOfRange, "port %d, have %d", i, len(c.inputs))
	}
	if !sameType(v, c.inputs[i]) {
		return newFault(op, c.system, ErrTypeMismatch, "port %d: want %s", i, c.inputs[i].TypeName())
	}
	c.inputs[i] = v.Clone()
	c.noteChanged(c.startNewChangeEvent(), c.system.inputPorts[i].ticket)
	return nil
}

// InputValue returns input port i as T.
func InputValue[T any](c *Context, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(c.inputs) {
		return zero, newFault("InputValue", c.system, ErrIndexOutOfRange, "port %d, have %d", i, len(c.inputs))
	}
	v, err := ValueAs[T](c.inputs[i])
	if err != nil {
		return zero, newFault("InputValue", c.system, err, "port %d", i)
	}
	return v.Get(), nil
}

// AbstractStateValue returns abstract state i as T.
func AbstractStateValue[T any](c *Context, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(c.abstract) {
		return zero, newFault("AbstractStateValue", c.system, ErrIndexOutOfRange, "index %d, have %d", i, len(c.abstract))
	}
	v, err := ValueAs[T](c.abstract[i])
	if err != nil {
		return zero, newFault("AbstractStateValue", c.system, err, "index %d", i)
	}
	return v.Get(), nil
}

func sameType(v, want AbstractValue) bool {
	return v != nil && reflect.TypeOf(v) == reflect.TypeOf(want)
}
