package cascade

import (
	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/template"
)

// phase tracks where a node is inside the render pipeline.
type phase uint8

const (
	phaseIdle      phase = iota
	phaseStarting        // start notifications; template not evaluated yet
	phaseChildren        // template evaluated, children in progress
	phaseFinishing       // painted, completion notifications in progress
)

// Node is one mounted component in the tree.
//
// A node keeps its identity for as long as its parent keeps invoking it at
// the same position (or with the same key). Its children are owned
// exclusively by it and are only mutated by its own render pass.
type Node struct {
	id    uint64
	name  string
	label string
	key   string
	host  bool

	comp  Component
	tmpl  template.Template
	sched *Scheduler

	parent   *Node
	children []*Node
	depth    int

	attrs   attrs.Attrs
	pending attrs.Attrs
	state   attrs.Attrs
	content template.Content

	// dirty is set by own state changes, forced by explicit rerender requests.
	// dirtyBelow marks that some descendant holds one of the two.
	dirty      bool
	forced     bool
	dirtyBelow bool

	mounted   bool
	destroyed bool
	phase     phase

	followUps   int
	followUpRun uint64
}

// ID returns the node's identity for its mount lifetime.
func (n *Node) ID() uint64 { return n.id }

// Name returns the component name the node was created from.
// Host roots have an empty name.
func (n *Node) Name() string { return n.name }

// Label returns the name used in events and logs.
func (n *Node) Label() string { return n.label }

// Key returns the invocation key, if any.
func (n *Node) Key() string { return n.key }

// Depth returns the distance from the root.
func (n *Node) Depth() int { return n.depth }

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Host reports whether the node is a template-only root without lifecycle
// notifications.
func (n *Node) Host() bool { return n.host }

// Component returns the component instance. Host roots return nil.
func (n *Node) Component() Component { return n.comp }

// Children returns the child nodes in invocation order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Attrs returns the committed attrs snapshot.
func (n *Node) Attrs() attrs.Attrs { return n.attrs.Clone() }

// Attr returns one committed attr.
func (n *Node) Attr(name string) any { return n.attrs[name] }

// PendingAttrs returns the attrs computed for the pass in flight, before
// they are committed. It is nil outside willUpdate and willReceiveAttrs.
func (n *Node) PendingAttrs() attrs.Attrs { return n.pending.Clone() }

// State returns a copy of the node's own state.
func (n *Node) State() attrs.Attrs { return n.state.Clone() }

// Get returns one state value.
func (n *Node) Get(key string) any { return n.state[key] }

// Content returns the content painted by the node's last render.
func (n *Node) Content() template.Content { return n.content }

// Mounted reports whether the node has been painted and not torn down.
func (n *Node) Mounted() bool { return n.mounted }

// Destroyed reports whether the node was torn down.
func (n *Node) Destroyed() bool { return n.destroyed }

// Dirty reports whether the node is waiting for a render.
func (n *Node) Dirty() bool { return n.dirty || n.forced }

// Set changes a state value. Writing an equal value is a no-op. Outside a
// unit of work the change is rendered immediately; inside one it is
// coalesced with every other change of the run.
func (n *Node) Set(key string, value any) error {
	if n.destroyed {
		return ErrDestroyed
	}
	if old, ok := n.state[key]; ok && attrs.Equal(old, value) {
		return nil
	}
	if n.state == nil {
		n.state = make(attrs.Attrs)
	}
	n.state[key] = value
	return n.sched.request(n, false)
}

// SetAll changes several state values with a single render request.
func (n *Node) SetAll(values attrs.Attrs) error {
	if n.destroyed {
		return ErrDestroyed
	}
	changed := false
	for key, value := range values {
		if old, ok := n.state[key]; ok && attrs.Equal(old, value) {
			continue
		}
		if n.state == nil {
			n.state = make(attrs.Attrs)
		}
		n.state[key] = value
		changed = true
	}
	if !changed {
		return nil
	}
	return n.sched.request(n, false)
}

// Rerender forces the node and its whole subtree to re-render. Every
// descendant re-receives its attrs. From inside a hook the target must be
// the hook's node or one of its descendants.
func (n *Node) Rerender() error {
	if n.destroyed {
		return ErrDestroyed
	}
	return n.sched.request(n, true)
}

// within reports whether n is ancestor itself or one of its descendants.
func (n *Node) within(ancestor *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// needsWork reports whether the node or its subtree asked for a render.
func (n *Node) needsWork() bool {
	return n.dirty || n.forced || n.dirtyBelow
}

// markAncestors flags the ancestors so revalidation walks down to n. It
// stops at the first ancestor whose render is under way: that render
// visits n's branch or follows up on it before it completes.
func (n *Node) markAncestors() {
	for p := n.parent; p != nil; p = p.parent {
		p.dirtyBelow = true
		if p.phase == phaseStarting || p.phase == phaseChildren {
			return
		}
	}
}

// clearFlags drops pending work for the node and its subtree. Attrs handed
// to a mounted node by an aborted pass are dropped with it; the next render
// of the parent delivers them again.
func (n *Node) clearFlags() {
	n.dirty, n.forced, n.dirtyBelow = false, false, false
	n.phase = phaseIdle
	if n.mounted {
		n.pending = nil
	}
	for _, c := range n.children {
		c.clearFlags()
	}
}
