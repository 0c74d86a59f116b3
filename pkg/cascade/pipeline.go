package cascade

import (
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/template"
)

// revalidate walks down to the nodes that asked for work. Clean nodes on
// the way receive no notifications.
func (s *Scheduler) revalidate(n *Node) error {
	if n.destroyed {
		return nil
	}
	if n.dirty || n.forced {
		return s.update(n, nil)
	}
	if !n.dirtyBelow {
		return nil
	}
	n.dirtyBelow = false
	for _, c := range n.Children() {
		if err := s.revalidate(c); err != nil {
			return err
		}
	}
	return nil
}

// mount runs the initial render of a freshly created node.
func (s *Scheduler) mount(n *Node) error {
	s.passNodes++
	n.phase = phaseStarting
	defer func() { n.phase = phaseIdle }()

	n.commit()
	if err := s.dispatch(n, HookInit, nil); err != nil {
		return err
	}
	if err := s.dispatch(n, HookWillRender, nil); err != nil {
		return err
	}
	return s.render(n, true)
}

// update re-renders an existing node. delta holds the attrs that changed
// since the last commit.
func (s *Scheduler) update(n *Node, delta attrs.Attrs) error {
	s.passNodes++
	n.phase = phaseStarting
	defer func() { n.phase = phaseIdle }()

	if err := s.dispatch(n, HookWillUpdate, nil); err != nil {
		return err
	}
	if len(delta) > 0 {
		if err := s.dispatch(n, HookWillReceiveAttrs, delta); err != nil {
			return err
		}
	}
	n.commit()
	if err := s.dispatch(n, HookWillRender, nil); err != nil {
		return err
	}
	return s.render(n, false)
}

// commit makes the pending attrs current.
func (n *Node) commit() {
	if n.pending == nil {
		if n.attrs == nil {
			n.attrs = attrs.Attrs{}
		}
		return
	}
	n.attrs = n.pending
	n.pending = nil
}

// render evaluates the template, reconciles and renders the children,
// paints, then fires the completion notifications.
func (s *Scheduler) render(n *Node, initial bool) error {
	forced := n.forced
	n.dirty, n.forced, n.dirtyBelow = false, false, false
	n.phase = phaseChildren

	out, err := evaluate(n)
	if err != nil {
		return &StructuralError{Component: n.name, Label: n.label, Err: err}
	}
	if err := s.reconcile(n, out.Invocations); err != nil {
		return err
	}

	for _, c := range n.children {
		if err := s.renderChild(c, forced); err != nil {
			n.dropUnmounted()
			return err
		}
	}

	s.painter.Paint(n, out.Content)
	n.content = out.Content
	n.phase = phaseFinishing

	if initial {
		n.mounted = true
		if err := s.dispatchTerminal(n, HookDidInsertElement); err != nil {
			return err
		}
	} else if err := s.dispatch(n, HookDidUpdate, nil); err != nil {
		return err
	}
	if err := s.dispatchTerminal(n, HookDidRender); err != nil {
		return err
	}
	return s.followUp(n)
}

// evaluate runs n's template. A panicking template fails like one returning
// an error.
func evaluate(n *Node) (out template.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return n.tmpl.Evaluate(template.Context{Attrs: n.attrs, State: n.state})
}

func evalAttrs(inv template.Invocation, ctx template.Context) (a attrs.Attrs, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return inv.EvalAttrs(ctx)
}

// renderChild brings one reconciled child up to date. A forced parent
// forces every child and re-supplies its full attrs.
func (s *Scheduler) renderChild(c *Node, forced bool) error {
	if !c.mounted {
		return s.mount(c)
	}

	var delta attrs.Attrs
	if forced {
		c.forced = true
		delta = c.pending.Clone()
	} else {
		delta = attrs.Diff(c.attrs, c.pending)
	}

	if c.dirty || c.forced || len(delta) > 0 {
		return s.update(c, delta)
	}
	c.commit()
	return s.revalidate(c)
}

// reconcile matches the invocations against the current children, creates
// the missing nodes and tears down the ones no longer invoked. Every kept
// or created child gets its freshly evaluated attrs as pending.
func (s *Scheduler) reconcile(n *Node, invocations []template.Invocation) error {
	ctx := template.Context{Attrs: n.attrs, State: n.state}

	keyed := make(map[string]*Node)
	for _, c := range n.children {
		if c.key != "" {
			keyed[c.name+"\x00"+c.key] = c
		}
	}
	used := make(map[*Node]bool, len(n.children))

	next := make([]*Node, 0, len(invocations))
	for i, inv := range invocations {
		a, err := evalAttrs(inv, ctx)
		if err != nil {
			return &StructuralError{Component: inv.Component, Label: n.label, Err: err}
		}

		var match *Node
		if inv.Key != "" {
			if c, ok := keyed[inv.Component+"\x00"+inv.Key]; ok && !used[c] {
				match = c
			}
		} else if i < len(n.children) {
			c := n.children[i]
			if c.key == "" && c.name == inv.Component && !used[c] {
				match = c
			}
		}

		if match == nil {
			c, err := s.create(n, inv, a)
			if err != nil {
				return err
			}
			next = append(next, c)
			continue
		}
		used[match] = true
		match.pending = a
		next = append(next, match)
	}

	var stale []*Node
	for _, c := range n.children {
		if !used[c] {
			stale = append(stale, c)
		}
	}
	n.children = next

	for _, c := range stale {
		if err := s.teardown(c); err != nil {
			return err
		}
	}
	return nil
}

// create resolves and instantiates a component node. It does not mount it.
func (s *Scheduler) create(parent *Node, inv template.Invocation, a attrs.Attrs) (*Node, error) {
	factory, err := s.registry.ResolveComponent(inv.Component)
	if err != nil {
		return nil, &StructuralError{Component: inv.Component, Err: err}
	}
	tmpl, err := s.registry.ResolveTemplate(inv.Component)
	if err != nil {
		return nil, &StructuralError{Component: inv.Component, Err: err}
	}
	comp := factory()
	if comp == nil {
		return nil, &StructuralError{Component: inv.Component, Err: fmt.Errorf("%w: factory returned nil", ErrUnknownComponent)}
	}

	n := s.newNode(parent, inv.Component, comp, tmpl)
	n.key = inv.Key
	n.pending = a
	return n, nil
}

// dropUnmounted removes children whose mount never completed, so a later
// render creates them afresh instead of re-running their init.
func (n *Node) dropUnmounted() {
	kept := n.children[:0]
	for _, c := range n.children {
		if c.mounted {
			kept = append(kept, c)
			continue
		}
		c.destroyed = true
	}
	n.children = kept
}

// teardown removes a subtree: willDestroyElement parents first, then
// didDestroyElement children first.
func (s *Scheduler) teardown(n *Node) error {
	if err := s.willDestroy(n); err != nil {
		return err
	}
	return s.didDestroy(n)
}

func (s *Scheduler) willDestroy(n *Node) error {
	if n.mounted {
		if err := s.dispatch(n, HookWillDestroyElement, nil); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := s.willDestroy(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) didDestroy(n *Node) error {
	for _, c := range n.children {
		if err := s.didDestroy(c); err != nil {
			return err
		}
	}

	wasMounted := n.mounted
	n.mounted = false
	n.dirty, n.forced, n.dirtyBelow = false, false, false
	if e, ok := s.painter.(Eraser); ok {
		e.Erase(n)
	}
	defer func() { n.destroyed = true }()
	if !wasMounted {
		return nil
	}
	return s.dispatch(n, HookDidDestroyElement, nil)
}

// dispatch delivers one notification to observers and to the component.
func (s *Scheduler) dispatch(n *Node, hook Hook, payload attrs.Attrs) error {
	if n.host {
		return nil
	}
	s.dispatcher.notify(n, hook, payload)
	s.metrics.ObserveHook(hook)

	s.hooks = append(s.hooks, n)
	err := invoke(n, hook, payload)
	s.hooks = s.hooks[:len(s.hooks)-1]

	if err != nil {
		return &NotificationError{NodeID: n.id, Label: n.label, Hook: hook, Err: err}
	}
	return nil
}

// dispatchTerminal delivers a post-paint notification and checks that the
// component did not change its own state while handling it.
func (s *Scheduler) dispatchTerminal(n *Node, hook Hook) error {
	if n.host {
		return nil
	}
	before := n.state.Clone()
	if err := s.dispatch(n, hook, nil); err != nil {
		return err
	}
	if changed := attrs.Diff(before, n.state); len(changed) > 0 {
		s.warn(&DeprecatedMutationWarning{
			NodeID: n.id,
			Label:  n.label,
			Hook:   hook,
			Keys:   changed.Keys(),
		})
	}
	return nil
}

func (s *Scheduler) warn(w *DeprecatedMutationWarning) {
	s.logger.Warn(w.Error(), "node", w.NodeID, "hook", w.Hook.String())
	s.metrics.ObserveWarning(w.Hook)
	s.dispatcher.warnings.emit(w)
}

// followUp re-renders n in place when its own completion hooks, or those
// of its descendants, asked for more work.
func (s *Scheduler) followUp(n *Node) error {
	if !n.needsWork() {
		return nil
	}
	if n.dirty || n.forced {
		if n.followUpRun != s.runSeq {
			n.followUpRun = s.runSeq
			n.followUps = 0
		}
		n.followUps++
		if n.followUps > s.maxReentrant {
			return fmt.Errorf("%w: %s re-rendered itself %d times", ErrReentrancyLimit, n.label, s.maxReentrant)
		}
		s.logger.Debug("follow-up render", "node", n.id, "label", n.label, "count", n.followUps)
		s.metrics.ObserveFollowUp()
	}
	return s.revalidate(n)
}
