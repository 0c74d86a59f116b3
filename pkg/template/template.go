package template

import (
	"fmt"
	"strings"

	"github.com/vango-dev/cascade/pkg/attrs"
)

// Context is what a template and its attrs expressions are evaluated against.
type Context struct {
	// Attrs is the component's committed attrs snapshot.
	Attrs attrs.Attrs

	// State is the component's own rendering-affecting state.
	State attrs.Attrs
}

// Lookup resolves a dotted path against the context. Missing paths yield nil.
func (c Context) Lookup(path string) any {
	head, rest, nested := strings.Cut(path, ".")
	if nested {
		switch head {
		case "attrs":
			return lookupIn(c.Attrs, rest)
		case "view", "state", "this":
			return lookupIn(c.State, rest)
		}
	}
	if v, ok := c.State[head]; ok {
		if !nested {
			return v
		}
		return descend(v, rest)
	}
	return lookupIn(c.Attrs, path)
}

func lookupIn(values attrs.Attrs, path string) any {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := values[head]
	if !ok {
		return nil
	}
	if !nested {
		return v
	}
	return descend(v, rest)
}

func descend(v any, path string) any {
	switch m := v.(type) {
	case attrs.Attrs:
		return lookupIn(m, path)
	case map[string]any:
		return lookupIn(attrs.Attrs(m), path)
	}
	return nil
}

// Expr is an attrs expression.
type Expr interface {
	Eval(ctx Context) (any, error)
}

// Literal is a constant expression.
type Literal struct {
	Value any
}

// Lit returns a Literal expression.
func Lit(v any) Literal {
	return Literal{Value: v}
}

// Eval returns the literal value.
func (l Literal) Eval(Context) (any, error) {
	return l.Value, nil
}

// Ref reads a path from the context.
type Ref string

// Eval looks the path up in ctx.
func (r Ref) Eval(ctx Context) (any, error) {
	return ctx.Lookup(string(r)), nil
}

// ExprFunc adapts a function to Expr.
type ExprFunc func(ctx Context) (any, error)

// Eval calls f.
func (f ExprFunc) Eval(ctx Context) (any, error) {
	return f(ctx)
}

// Invocation describes one child component invocation in template order.
type Invocation struct {
	// Component is the registered component name.
	Component string

	// Key gives the invocation a stable identity independent of position.
	Key string

	// Attrs are the expressions producing the child's attrs.
	Attrs map[string]Expr
}

// EvalAttrs evaluates every attrs expression of the invocation.
func (inv Invocation) EvalAttrs(ctx Context) (attrs.Attrs, error) {
	out := make(attrs.Attrs, len(inv.Attrs))
	for name, expr := range inv.Attrs {
		if expr == nil {
			out[name] = nil
			continue
		}
		v, err := expr.Eval(ctx)
		if err != nil {
			return nil, fmt.Errorf("attr %q of %s: %w", name, inv.Component, err)
		}
		out[name] = v
	}
	return out, nil
}

// Segment is a piece of rendered content: either literal text or the slot
// of a child invocation.
type Segment struct {
	Text string

	// Child is the index into Output.Invocations, or -1 for text.
	Child int
}

// Text returns a text segment.
func Text(s string) Segment {
	return Segment{Text: s, Child: -1}
}

// Slot returns a child slot segment.
func Slot(i int) Segment {
	return Segment{Child: i}
}

// IsSlot reports whether the segment is a child slot.
func (s Segment) IsSlot() bool {
	return s.Child >= 0
}

// Content is the ordered output of one template evaluation.
type Content []Segment

// Output is the result of evaluating a template.
type Output struct {
	Content     Content
	Invocations []Invocation
}

// Template produces an Output for a context. Implementations must be
// deterministic for a fixed context.
type Template interface {
	Evaluate(ctx Context) (Output, error)
}

// Func adapts a function to Template.
type Func func(ctx Context) (Output, error)

// Evaluate calls f.
func (f Func) Evaluate(ctx Context) (Output, error) {
	return f(ctx)
}

// Format renders an interpolated value as text. nil renders as "".
func Format(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Empty renders nothing and invokes no children.
var Empty Template = Func(func(Context) (Output, error) {
	return Output{}, nil
})
