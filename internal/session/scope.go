package session

import (
	"github.com/specialistvlad/launchgrid/internal/supervisor"
)

// Scope is the runtime context of a resolution: a chain of frames holding
// variables and node parameter overrides. Lookups walk from the innermost
// frame to the root; writes go to the innermost frame. A Scope is only used
// by the goroutine that resolves the session.
type Scope struct {
	parent *Scope
	vars   map[string]string
	params []supervisor.Param
	// args names the bound arguments; only set on root frames.
	args map[string]bool
}

// NewScope returns an empty root frame.
func NewScope() *Scope {
	return &Scope{
		vars: make(map[string]string),
		args: make(map[string]bool),
	}
}

// Push returns a child frame. Dropping the child pops it.
func (s *Scope) Push() *Scope {
	return &Scope{parent: s, vars: make(map[string]string)}
}

// Lookup implements subst.Scope.
func (s *Scope) Lookup(name string) (string, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Set binds name in the innermost frame. Arguments cannot be reassigned.
func (s *Scope) Set(name, value string) error {
	if s.isArgument(name) {
		return &ImmutableArgumentError{Name: name}
	}
	s.vars[name] = value
	return nil
}

// bindArgument records an argument value on a root frame.
func (s *Scope) bindArgument(name, value string) {
	s.root().vars[name] = value
	s.root().args[name] = true
}

func (s *Scope) isArgument(name string) bool {
	return s.root().args[name]
}

func (s *Scope) root() *Scope {
	f := s
	for f.parent != nil {
		f = f.parent
	}
	return f
}

// SetParameter adds a parameter to every node started later within this
// frame or its children.
func (s *Scope) SetParameter(name, value string) {
	s.params = append(s.params, supervisor.Param{Name: name, Value: value})
}

// Parameters returns the parameter overrides visible from this frame, outer
// frames first. A later override of the same name replaces the earlier one
// in place.
func (s *Scope) Parameters() []supervisor.Param {
	var frames []*Scope
	for f := s; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	var out []supervisor.Param
	index := make(map[string]int)
	for i := len(frames) - 1; i >= 0; i-- {
		for _, p := range frames[i].params {
			if at, ok := index[p.Name]; ok {
				out[at] = p
				continue
			}
			index[p.Name] = len(out)
			out = append(out, p)
		}
	}
	return out
}

// Snapshot returns every visible variable.
func (s *Scope) Snapshot() map[string]string {
	out := make(map[string]string)
	var frames []*Scope
	for f := s; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	for i := len(frames) - 1; i >= 0; i-- {
		for k, v := range frames[i].vars {
			out[k] = v
		}
	}
	return out
}
