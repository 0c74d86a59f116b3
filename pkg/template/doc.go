// Package template defines the contract between the scheduler and the
// template layer, plus a small compiler for mustache-style component
// templates.
//
// The scheduler only needs three things from a template: the content to
// paint, the ordered list of child component invocations, and a way to
// evaluate each invocation's attrs expressions against the current context.
//
//	tmpl := template.MustCompile(`Twitter: {{attrs.twitter}} {{the-middle name="Tom Dale"}}`)
//	out, err := tmpl.Evaluate(template.Context{Attrs: attrs.Attrs{"twitter": "@tomdale"}})
//	// out.Invocations[0].Component == "the-middle"
//
// A mustache whose head contains a dash is a component invocation; anything
// else is a path interpolation. Paths starting with "attrs." read the
// component's attrs, "view.", "state." and "this." read its own state, and
// bare names read state first and then attrs.
package template
