package framework

import (
	"fmt"

	"github.com/google/uuid"
)

// SystemIndex addresses a system inside its Tree.
type SystemIndex int

// NoParent is the parent index of a root system.
const NoParent SystemIndex = -1

// Tree is the arena owning every system of one hierarchy. Children are
// stored as index lists and parents as plain indices.
type Tree struct {
	systems []*System
	frozen  bool
}

// Len returns the number of systems in the arena.
func (t *Tree) Len() int {
	return len(t.systems)
}

// System returns the system at index i, or nil.
func (t *Tree) System(i SystemIndex) *System {
	if i < 0 || int(i) >= len(t.systems) {
		return nil
	}
	return t.systems[i]
}

// Frozen reports whether a context has been allocated from this tree.
func (t *Tree) Frozen() bool {
	return t.frozen
}

// resource is a declared value source with its own ticket.
type resource struct {
	ticket Ticket
	name   string
	model  AbstractValue
	vector Vector
}

// System is the static description of one subsystem: its name, its
// declared sources and cache entries, and its children.
type System struct {
	tree       *Tree
	index      SystemIndex
	parent     SystemIndex
	children   []SystemIndex
	childIndex int

	id       uuid.UUID
	name     string
	typeName string

	tickets      ticketRegistry
	cacheEntries []*CacheEntry

	nq, nv, nz     int
	discreteStates []resource
	abstractStates []resource
	parameters     []resource
	inputPorts     []resource
	derivatives    *CacheEntry

	contextChecks []func(*Context) error
}

// NewSystem creates the root system of a new tree. typeName is reported by
// TypeName and is usually the Go type of the model built on top.
func NewSystem(typeName string) *System {
	t := &Tree{}
	return t.add(NoParent, typeName)
}

func (t *Tree) add(parent SystemIndex, typeName string) *System {
	s := &System{
		tree:     t,
		index:    SystemIndex(len(t.systems)),
		parent:   parent,
		id:       uuid.New(),
		typeName: typeName,
		tickets:  newTicketRegistry(),
	}
	t.systems = append(t.systems, s)
	return s
}

// AddSubsystem appends a child system. An empty name is replaced by a
// deterministic default derived from the child index.
func (s *System) AddSubsystem(name, typeName string) (*System, error) {
	if s.tree.frozen {
		return nil, newFault("AddSubsystem", s, ErrTreeFrozen, "")
	}
	if err := validateName(name); err != nil {
		return nil, newFault("AddSubsystem", s, err, "name %q", name)
	}
	if name != "" && s.hasChildNamed(name, nil) {
		return nil, newFault("AddSubsystem", s, ErrDuplicateName, "name %q", name)
	}

	child := s.tree.add(s.index, typeName)
	child.childIndex = len(s.children)
	s.children = append(s.children, child.index)
	if name == "" {
		name = s.defaultChildName(child.childIndex, child)
	}
	child.name = name
	return child, nil
}

// MustAddSubsystem is like AddSubsystem but panics on error. It is meant
// for static model construction.
func (s *System) MustAddSubsystem(name, typeName string) *System {
	child, err := s.AddSubsystem(name, typeName)
	if err != nil {
		panic(err)
	}
	return child
}

func (s *System) Tree() *Tree {
	return s.tree
}

func (s *System) Index() SystemIndex {
	return s.index
}

// ID uniquely identifies the system across trees.
func (s *System) ID() uuid.UUID {
	return s.id
}

// TypeName returns the type name given at construction, for error messages.
func (s *System) TypeName() string {
	return s.typeName
}

// Parent returns the parent system, or nil for a root.
func (s *System) Parent() *System {
	if s.parent == NoParent {
		return nil
	}
	return s.tree.systems[s.parent]
}

// ChildIndex is the zero-based position of s within its parent.
func (s *System) ChildIndex() int {
	return s.childIndex
}

func (s *System) NumSubsystems() int {
	return len(s.children)
}

// Subsystem returns child i. It panics if i is out of range.
func (s *System) Subsystem(i int) *System {
	if i < 0 || i >= len(s.children) {
		panic(newFault("Subsystem", s, ErrIndexOutOfRange, "index %d, have %d", i, len(s.children)))
	}
	return s.tree.systems[s.children[i]]
}

// Subsystems returns the children in order.
func (s *System) Subsystems() []*System {
	out := make([]*System, len(s.children))
	for i, c := range s.children {
		out[i] = s.tree.systems[c]
	}
	return out
}

// NumTickets is the number of tickets in scope, well-known ones included.
func (s *System) NumTickets() int {
	return s.tickets.count()
}

func (s *System) NumCacheEntries() int {
	return len(s.cacheEntries)
}

// CacheEntry returns the entry with the given index. It panics if the
// index is out of range.
func (s *System) CacheEntry(index int) *CacheEntry {
	if index < 0 || index >= len(s.cacheEntries) {
		panic(newFault("CacheEntry", s, ErrIndexOutOfRange, "index %d, have %d", index, len(s.cacheEntries)))
	}
	return s.cacheEntries[index]
}

// CacheEntryTicket returns the ticket of the entry with the given index.
// It panics if the index is out of range.
func (s *System) CacheEntryTicket(index int) Ticket {
	if index < 0 || index >= len(s.cacheEntries) {
		panic(newFault("CacheEntryTicket", s, ErrIndexOutOfRange, "index %d, have %d", index, len(s.cacheEntries)))
	}
	return s.cacheEntries[index].ticket
}

// TimeDerivatives returns the entry declared with DeclareTimeDerivatives,
// or nil.
func (s *System) TimeDerivatives() *CacheEntry {
	return s.derivatives
}

// AddContextCheck registers an extra validity check run by
// CheckValidContext.
func (s *System) AddContextCheck(check func(*Context) error) error {
	if s.tree.frozen {
		return newFault("AddContextCheck", s, ErrTreeFrozen, "")
	}
	if check == nil {
		return newFault("AddContextCheck", s, ErrNilCallback, "")
	}
	s.contextChecks = append(s.contextChecks, check)
	return nil
}

// CheckValidContext verifies that ctx was allocated from s and still has
// the shape s describes. It walks the whole subtree and is meant for
// debug-time use.
func (s *System) CheckValidContext(ctx *Context) error {
	if ctx == nil {
		return &ContextError{SystemPath: s.Path(), Reason: "context is nil"}
	}
	if ctx.systemID != s.id {
		return &ContextError{
			SystemPath: s.Path(),
			Reason: fmt.Sprintf("context was allocated for %s %q",
				ctx.system.TypeName(), ctx.system.Path()),
		}
	}
	if got, want := len(ctx.subcontexts), len(s.children); got != want {
		return &ContextError{SystemPath: s.Path(), Reason: fmt.Sprintf("context has %d subcontexts, want %d", got, want)}
	}
	if got, want := len(ctx.cacheValues), len(s.cacheEntries); got != want {
		return &ContextError{SystemPath: s.Path(), Reason: fmt.Sprintf("context has %d cache values, want %d", got, want)}
	}
	if got, want := len(ctx.graph.trackers), s.NumTickets(); got != want {
		return &ContextError{SystemPath: s.Path(), Reason: fmt.Sprintf("context has %d trackers, want %d", got, want)}
	}
	if got, want := len(ctx.xc), s.nq+s.nv+s.nz; got != want {
		return &ContextError{SystemPath: s.Path(), Reason: fmt.Sprintf("continuous state has %d elements, want %d", got, want)}
	}
	for _, check := range s.contextChecks {
		if err := check(ctx); err != nil {
			return &ContextError{SystemPath: s.Path(), Reason: err.Error()}
		}
	}
	for i, child := range s.Subsystems() {
		if err := child.CheckValidContext(ctx.subcontexts[i]); err != nil {
			return err
		}
	}
	return nil
}
