// Package cascade schedules re-renders of a component tree and delivers
// lifecycle notifications in a deterministic order.
//
// # Tree
//
// Every Node is one mounted component. A node's template produces its
// content and the ordered list of child invocations; each invocation's
// attrs expressions are evaluated against the parent to produce the
// child's attrs for the pass.
//
// # Notifications
//
// On first mount a node receives init and willRender, its children are
// mounted, it is painted, then didInsertElement and didRender fire. On
// update it receives willUpdate, willReceiveAttrs (only when some attrs
// changed), willRender, then didUpdate and didRender after its subtree
// completed. Start notifications run parents first, completion
// notifications children first.
//
// # Units of work
//
// State changes made inside Run are coalesced into a single pass:
//
//	err := sched.Run(ctx, func() error {
//	    if err := root.Set("twitter", "@tomdale"); err != nil {
//	        return err
//	    }
//	    return top.Set("name", "Tom")
//	})
//
// A change made outside any Run is rendered immediately.
//
// # Re-entrancy
//
// Set and Rerender called from a hook submit a request instead of
// rendering recursively. A request for a node whose template has not been
// evaluated yet is absorbed by the render in flight. A request made from a
// completion hook re-renders the node right after its didRender returns.
// Changing a node's own state inside didInsertElement or didRender raises
// a DeprecatedMutationWarning.
//
// A Scheduler and its nodes must be used from a single goroutine.
package cascade
