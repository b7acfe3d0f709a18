package framework

import (
	"strconv"
	"strings"
)

// PathDelimiter separates system names in a path. It may not appear in a
// system name.
const PathDelimiter = "/"

const defaultNamePrefix = "subsystem"

func validateName(name string) error {
	if strings.Contains(name, PathDelimiter) {
		return ErrInvalidName
	}
	return nil
}

// Name returns the name last given to SetName, or the default assigned when
// the system was attached to its parent. A root is unnamed unless named.
func (s *System) Name() string {
	return s.name
}

// SetName renames the system. The name may not contain PathDelimiter and
// must differ from every sibling's name. Setting an empty name on a child
// restores its default name.
func (s *System) SetName(name string) error {
	if s.tree.frozen {
		return newFault("SetName", s, ErrTreeFrozen, "")
	}
	if err := validateName(name); err != nil {
		return newFault("SetName", s, err, "name %q contains %q", name, PathDelimiter)
	}
	parent := s.Parent()
	if parent == nil {
		s.name = name
		return nil
	}
	if name == "" {
		name = parent.defaultChildName(s.childIndex, s)
	}
	if parent.hasChildNamed(name, s) {
		return newFault("SetName", s, ErrDuplicateName, "name %q", name)
	}
	s.name = name
	return nil
}

// Path returns the names from the root down to s joined by PathDelimiter.
// An unnamed root contributes no segment.
func (s *System) Path() string {
	var segments []string
	for cur := s; cur != nil; cur = cur.Parent() {
		if cur.name == "" && cur.parent == NoParent {
			continue
		}
		segments = append(segments, cur.name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, PathDelimiter)
}

func (s *System) hasChildNamed(name string, except *System) bool {
	for _, ci := range s.children {
		c := s.tree.systems[ci]
		if c != except && c.name == name {
			return true
		}
	}
	return false
}

// defaultChildName picks "subsystem<i>", adding a suffix if a sibling was
// already given that name explicitly.
func (s *System) defaultChildName(childIndex int, except *System) string {
	base := defaultNamePrefix + strconv.Itoa(childIndex)
	name := base
	for n := 1; s.hasChildNamed(name, except); n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	return name
}
