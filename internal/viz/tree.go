package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/systree/internal/framework"
)

// TicketName resolves t to a readable name within s: well-known tickets by
// their fixed name, dynamic ones by the source or cache entry they stand
// for.
func TicketName(s *framework.System, t framework.Ticket) string {
	if t.IsWellKnown() {
		return t.String()
	}
	for i := 0; i < s.NumCacheEntries(); i++ {
		if s.CacheEntryTicket(i) == t {
			return s.CacheEntry(i).Description()
		}
	}
	for i := 0; i < s.NumDiscreteStates(); i++ {
		if s.DiscreteStateTicket(i) == t {
			return fmt.Sprintf("xd%d", i)
		}
	}
	for i := 0; i < s.NumAbstractStates(); i++ {
		if s.AbstractStateTicket(i) == t {
			return fmt.Sprintf("xa%d", i)
		}
	}
	for i := 0; i < s.NumNumericParameters(); i++ {
		if s.NumericParameterTicket(i) == t {
			return fmt.Sprintf("p%d", i)
		}
	}
	for i := 0; i < s.NumInputPorts(); i++ {
		if s.InputPortTicket(i) == t {
			return "u:" + s.InputPortName(i)
		}
	}
	return t.String()
}

// RenderTree draws ctx and its subcontexts: each system with its sources
// and each cache entry with its freshness, serial number and
// prerequisites.
func RenderTree(ctx *framework.Context) string {
	var b strings.Builder
	renderContext(&b, ctx, "")
	return strings.TrimRight(b.String(), "\n")
}

func renderContext(b *strings.Builder, ctx *framework.Context, indent string) {
	s := ctx.System()
	name := ctx.Path()
	if name == "" {
		name = "/"
	}
	fmt.Fprintf(b, "%s%s %s\n", indent, systemStyle.Render(name), typeStyle.Render("("+s.TypeName()+")"))

	inner := indent + "  "
	if src := sourceSummary(s); src != "" {
		fmt.Fprintf(b, "%ssources: %s\n", inner, src)
	}
	for i := 0; i < s.NumCacheEntries(); i++ {
		e := s.CacheEntry(i)
		cv := ctx.CacheValue(i)
		fmt.Fprintf(b, "%s%s %s #%d <- %s\n", inner, freshness(e, cv), e.Description(),
			cv.SerialNumber(), prerequisiteList(s, e))
	}
	for i := 0; i < ctx.NumSubcontexts(); i++ {
		renderContext(b, ctx.Subcontext(i), inner)
	}
}

func freshness(e *framework.CacheEntry, cv *framework.CacheEntryValue) string {
	switch {
	case e.IsConstant():
		return constStyle.Render("[=]")
	case cv.IsUpToDate():
		return freshStyle.Render("[✓]")
	}
	return staleStyle.Render("[ ]")
}

func prerequisiteList(s *framework.System, e *framework.CacheEntry) string {
	prereqs := e.Prerequisites()
	names := make([]string, len(prereqs))
	for i, t := range prereqs {
		names[i] = TicketName(s, t)
	}
	return strings.Join(names, ", ")
}

func sourceSummary(s *framework.System) string {
	var parts []string
	if nq, nv, nz := s.ContinuousStateSizes(); nq+nv+nz > 0 {
		parts = append(parts, fmt.Sprintf("xc(q=%d v=%d z=%d)", nq, nv, nz))
	}
	if n := s.NumDiscreteStates(); n > 0 {
		parts = append(parts, fmt.Sprintf("xd×%d", n))
	}
	if n := s.NumAbstractStates(); n > 0 {
		parts = append(parts, fmt.Sprintf("xa×%d", n))
	}
	if n := s.NumNumericParameters(); n > 0 {
		parts = append(parts, fmt.Sprintf("p×%d", n))
	}
	for i := 0; i < s.NumInputPorts(); i++ {
		parts = append(parts, "u:"+s.InputPortName(i))
	}
	return strings.Join(parts, " ")
}
