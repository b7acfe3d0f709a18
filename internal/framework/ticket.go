package framework

import "strconv"

// Ticket names a value source or computation within one system's scope.
// Well-known tickets mean the same thing in every system; dynamic tickets
// are handed out per system in declaration order.
type Ticket int

// Well-known ticket values. Time and accuracy refer to the same global
// resource everywhere; the others refer to sources within the system.
const (
	nothingTicket Ticket = iota
	timeTicket
	accuracyTicket
	qTicket
	vTicket
	zTicket
	xcTicket
	xdTicket
	xaTicket
	xTicket
	configurationTicket
	velocityTicket
	kinematicsTicket
	allParametersTicket
	allInputPortsTicket
	allSourcesTicket
	xcdotTicket
	xdhatTicket

	// NextAvailableTicket is the first dynamic ticket of every system.
	NextAvailableTicket
)

var wellKnownNames = [...]string{
	nothingTicket:       "nothing",
	timeTicket:          "time",
	accuracyTicket:      "accuracy",
	qTicket:             "q",
	vTicket:             "v",
	zTicket:             "z",
	xcTicket:            "xc",
	xdTicket:            "xd",
	xaTicket:            "xa",
	xTicket:             "x",
	configurationTicket: "configuration",
	velocityTicket:      "velocity",
	kinematicsTicket:    "kinematics",
	allParametersTicket: "all parameters",
	allInputPortsTicket: "all input ports",
	allSourcesTicket:    "all sources",
	xcdotTicket:         "xcdot",
	xdhatTicket:         "xdhat",
}

// IsWellKnown reports whether t is one of the fixed tickets shared by every system.
func (t Ticket) IsWellKnown() bool {
	return t >= 0 && t < NextAvailableTicket
}

func (t Ticket) String() string {
	if t.IsWellKnown() {
		return wellKnownNames[t]
	}
	return "ticket(" + strconv.Itoa(int(t)) + ")"
}

// AllSourcesTicket indicates dependence on every independent source: time,
// accuracy, state, parameters and input ports (but not cache entries). It
// is the default prerequisite of a cache entry.
func AllSourcesTicket() Ticket { return allSourcesTicket }

// NothingTicket indicates a constant computation. If present in a
// prerequisite list it must be the only entry.
func NothingTicket() Ticket { return nothingTicket }

// TimeTicket indicates dependence on time.
func TimeTicket() Ticket { return timeTicket }

// AccuracyTicket indicates dependence on the accuracy setting.
func AccuracyTicket() Ticket { return accuracyTicket }

// QTicket indicates dependence on configuration state variables q.
func QTicket() Ticket { return qTicket }

// VTicket indicates dependence on velocity state variables v only.
func VTicket() Ticket { return vTicket }

// ZTicket indicates dependence on miscellaneous continuous state z.
func ZTicket() Ticket { return zTicket }

// XcTicket indicates dependence on all continuous state (q, v and z).
func XcTicket() Ticket { return xcTicket }

// XdTicket indicates dependence on every discrete state group.
func XdTicket() Ticket { return xdTicket }

// XaTicket indicates dependence on every abstract state variable.
func XaTicket() Ticket { return xaTicket }

// AllStateTicket indicates dependence on xc, xd and xa. It does not imply
// time, parameters or inputs.
func AllStateTicket() Ticket { return xTicket }

// XcdotTicket names the cache entry holding continuous time derivatives.
func XcdotTicket() Ticket { return xcdotTicket }

// XdhatTicket names the discrete state update computation.
func XdhatTicket() Ticket { return xdhatTicket }

// ConfigurationTicket indicates dependence on configuration variables,
// which are q in this framework.
func ConfigurationTicket() Ticket { return configurationTicket }

// VelocityTicket indicates dependence on velocity variables, which are v in
// this framework.
func VelocityTicket() Ticket { return velocityTicket }

// KinematicsTicket indicates dependence on configuration and velocity.
func KinematicsTicket() Ticket { return kinematicsTicket }

// AllParametersTicket indicates dependence on every parameter group.
func AllParametersTicket() Ticket { return allParametersTicket }

// AllInputPortsTicket indicates dependence on every input port.
func AllInputPortsTicket() Ticket { return allInputPortsTicket }

// ticketRegistry hands out dynamic tickets for one system.
type ticketRegistry struct {
	next Ticket
}

func newTicketRegistry() ticketRegistry {
	return ticketRegistry{next: NextAvailableTicket}
}

// allocate returns the next unused ticket. Tickets are never reused.
func (r *ticketRegistry) allocate() Ticket {
	t := r.next
	r.next++
	return t
}

// known reports whether t is well-known or was already allocated.
func (r *ticketRegistry) known(t Ticket) bool {
	return t >= 0 && t < r.next
}

// count is the number of tickets in scope, well-known ones included.
func (r *ticketRegistry) count() int {
	return int(r.next)
}
