package cascadetest

import (
	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
)

// HookFunc scripts one lifecycle hook. delta is only set for
// willReceiveAttrs.
type HookFunc func(n *cascade.Node, delta attrs.Attrs) error

// Stub is a component implementing every lifecycle hook by delegating to
// scripted functions. Each node gets its own copy.
type Stub struct {
	name  string
	state attrs.Attrs
	hooks map[cascade.Hook]HookFunc
}

var (
	_ cascade.Component        = (*Stub)(nil)
	_ cascade.WillUpdater      = (*Stub)(nil)
	_ cascade.AttrsReceiver    = (*Stub)(nil)
	_ cascade.WillRenderer     = (*Stub)(nil)
	_ cascade.ElementInserter  = (*Stub)(nil)
	_ cascade.DidUpdater       = (*Stub)(nil)
	_ cascade.DidRenderer      = (*Stub)(nil)
	_ cascade.ElementDestroyer = (*Stub)(nil)
	_ cascade.Destroyer        = (*Stub)(nil)
	_ cascade.Labeler          = (*Stub)(nil)
)

// NewStub creates a stub labelled name.
func NewStub(name string) *Stub {
	return &Stub{name: name, hooks: make(map[cascade.Hook]HookFunc)}
}

// WithState sets the state installed by init.
func (s *Stub) WithState(state attrs.Attrs) *Stub {
	s.state = state.Clone()
	return s
}

// On scripts hook h. Scripting a hook twice replaces the first function.
func (s *Stub) On(h cascade.Hook, fn HookFunc) *Stub {
	s.hooks[h] = fn
	return s
}

// Factory returns a factory handing out copies of s.
func (s *Stub) Factory() cascade.Factory {
	return func() cascade.Component {
		c := *s
		return &c
	}
}

// Label implements cascade.Labeler.
func (s *Stub) Label() string { return s.name }

// Init installs the initial state, then runs the scripted init hook.
func (s *Stub) Init(n *cascade.Node) error {
	if len(s.state) > 0 {
		if err := n.SetAll(s.state); err != nil {
			return err
		}
	}
	return s.call(cascade.HookInit, n, nil)
}

func (s *Stub) WillUpdate(n *cascade.Node) error {
	return s.call(cascade.HookWillUpdate, n, nil)
}

func (s *Stub) WillReceiveAttrs(n *cascade.Node, delta attrs.Attrs) error {
	return s.call(cascade.HookWillReceiveAttrs, n, delta)
}

func (s *Stub) WillRender(n *cascade.Node) error {
	return s.call(cascade.HookWillRender, n, nil)
}

func (s *Stub) DidInsertElement(n *cascade.Node) error {
	return s.call(cascade.HookDidInsertElement, n, nil)
}

func (s *Stub) DidUpdate(n *cascade.Node) error {
	return s.call(cascade.HookDidUpdate, n, nil)
}

func (s *Stub) DidRender(n *cascade.Node) error {
	return s.call(cascade.HookDidRender, n, nil)
}

func (s *Stub) WillDestroyElement(n *cascade.Node) error {
	return s.call(cascade.HookWillDestroyElement, n, nil)
}

func (s *Stub) DidDestroyElement(n *cascade.Node) error {
	return s.call(cascade.HookDidDestroyElement, n, nil)
}

func (s *Stub) call(h cascade.Hook, n *cascade.Node, delta attrs.Attrs) error {
	if fn, ok := s.hooks[h]; ok && fn != nil {
		return fn(n, delta)
	}
	return nil
}

// Find returns the first node labelled label in a depth-first walk from
// root, or nil.
func Find(root *cascade.Node, label string) *cascade.Node {
	if root == nil {
		return nil
	}
	if root.Label() == label {
		return root
	}
	for _, c := range root.Children() {
		if found := Find(c, label); found != nil {
			return found
		}
	}
	return nil
}
