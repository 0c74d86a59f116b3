// Package cascadetest provides helpers for testing cascade components.
//
// The package reduces the boilerplate of wiring a registry, a scheduler, a
// recorder and a text painter, and offers assertions on the recorded hook
// sequence and on the painted text.
//
// # Quick Start
//
//	func TestGreeting(t *testing.T) {
//	    h := cascadetest.New(t)
//	    h.Register("x-greeting", cascadetest.NewStub("greeting"), "Hello {{attrs.name}}")
//	    root := h.Mount(`{{x-greeting name=name}}`, attrs.Attrs{"name": "Tom"})
//
//	    h.ExpectText(root, "Hello Tom")
//	    h.Reset()
//
//	    h.Set(root, "name", "Yehuda")
//	    h.ExpectHooks(
//	        "greeting:willUpdate",
//	        "greeting:willReceiveAttrs",
//	        "greeting:willRender",
//	        "greeting:didUpdate",
//	        "greeting:didRender",
//	    )
//	}
//
// # Scripted Components
//
// Stub is a component whose hooks are plain functions:
//
//	stub := cascadetest.NewStub("top").
//	    WithState(attrs.Attrs{"name": "Tom Dale"}).
//	    On(cascade.HookWillReceiveAttrs, func(n *cascade.Node, _ attrs.Attrs) error {
//	        return n.Rerender()
//	    })
package cascadetest
