package cascade

import "github.com/vango-dev/cascade/pkg/attrs"

// Component is the behaviour attached to a node. Init is the only required
// notification; every other lifecycle hook is an optional capability
// discovered by type assertion.
//
// Hooks run synchronously on the scheduler's goroutine. Returning an error
// (or panicking) abandons the node's remaining notifications and fails the
// current run.
type Component interface {
	Init(n *Node) error
}

// WillUpdater is notified before an existing node re-renders.
type WillUpdater interface {
	WillUpdate(n *Node) error
}

// AttrsReceiver receives the attrs that changed since the last render.
// The delta is never empty.
type AttrsReceiver interface {
	WillReceiveAttrs(n *Node, delta attrs.Attrs) error
}

// WillRenderer is notified right before the node's template is evaluated.
type WillRenderer interface {
	WillRender(n *Node) error
}

// ElementInserter is notified once, after the first paint.
type ElementInserter interface {
	DidInsertElement(n *Node) error
}

// DidUpdater is notified after a re-render completed for the node and all
// of its descendants.
type DidUpdater interface {
	DidUpdate(n *Node) error
}

// DidRenderer is notified after every paint.
type DidRenderer interface {
	DidRender(n *Node) error
}

// ElementDestroyer is notified before a node is torn down, parents first.
type ElementDestroyer interface {
	WillDestroyElement(n *Node) error
}

// Destroyer is notified after a node was torn down, children first.
type Destroyer interface {
	DidDestroyElement(n *Node) error
}

// Labeler overrides the label used for a node in events and logs.
// The default label is the component name.
type Labeler interface {
	Label() string
}

// Base provides a no-op Init for embedding.
type Base struct{}

// Init does nothing.
func (Base) Init(*Node) error { return nil }

// Factory creates a fresh component instance for a new node.
type Factory func() Component
