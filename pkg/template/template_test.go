package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/vango-dev/cascade/pkg/attrs"
)

func render(t *testing.T, out Output) string {
	t.Helper()
	var b strings.Builder
	for _, seg := range out.Content {
		if seg.IsSlot() {
			b.WriteString("<" + out.Invocations[seg.Child].Component + ">")
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func TestCompileInterpolationAndInvocation(t *testing.T) {
	tmpl := MustCompile(`Twitter: {{attrs.twitter}} {{the-middle name="Tom Dale"}}`)

	out, err := tmpl.Evaluate(Context{Attrs: attrs.Attrs{"twitter": "@tomdale"}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if got := render(t, out); got != "Twitter: @tomdale <the-middle>" {
		t.Errorf("content = %q", got)
	}
	if len(out.Invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(out.Invocations))
	}

	child, err := out.Invocations[0].EvalAttrs(Context{})
	if err != nil {
		t.Fatalf("EvalAttrs: %v", err)
	}
	if child["name"] != "Tom Dale" {
		t.Errorf("name attr = %v", child["name"])
	}
}

func TestReadonlyRefReadsViewState(t *testing.T) {
	tmpl := MustCompile(`{{the-top twitter=(readonly view.twitter)}}`)
	ctx := Context{State: attrs.Attrs{"twitter": "@tomdale"}}

	out, err := tmpl.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got, err := out.Invocations[0].EvalAttrs(ctx)
	if err != nil {
		t.Fatalf("EvalAttrs: %v", err)
	}
	if got["twitter"] != "@tomdale" {
		t.Errorf("twitter = %v", got["twitter"])
	}
}

func TestLiteralKinds(t *testing.T) {
	tmpl := MustCompile(`{{x-item count=3 ratio=0.5 on=true label='hi' key="row-1"}}`)
	out, err := tmpl.Evaluate(Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	inv := out.Invocations[0]
	if inv.Key != "row-1" {
		t.Errorf("key = %q", inv.Key)
	}
	if _, ok := inv.Attrs["key"]; ok {
		t.Errorf("key must not be an attr")
	}
	got, _ := inv.EvalAttrs(Context{})
	if got["count"] != 3 || got["ratio"] != 0.5 || got["on"] != true || got["label"] != "hi" {
		t.Errorf("unexpected attrs %v", got)
	}
}

func TestQuotedBracesStayInLiteral(t *testing.T) {
	tmpl := MustCompile(`{{x-a t="a}}b" u='}}'}} after`)
	out, err := tmpl.Evaluate(Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := render(t, out); got != "<x-a> after" {
		t.Errorf("content = %q", got)
	}
	got, err := out.Invocations[0].EvalAttrs(Context{})
	if err != nil {
		t.Fatalf("EvalAttrs: %v", err)
	}
	if got["t"] != "a}}b" || got["u"] != "}}" {
		t.Errorf("unexpected attrs %v", got)
	}
}

func TestLookup(t *testing.T) {
	ctx := Context{
		Attrs: attrs.Attrs{"name": "attr", "user": map[string]any{"handle": "@wycats"}},
		State: attrs.Attrs{"name": "state", "handle": "@tomdale"},
	}

	tests := []struct {
		path string
		want any
	}{
		{"attrs.name", "attr"},
		{"view.name", "state"},
		{"this.handle", "@tomdale"},
		{"name", "state"},
		{"user.handle", "@wycats"},
		{"attrs.user.handle", "@wycats"},
		{"missing", nil},
		{"attrs.missing.deep", nil},
	}
	for _, tt := range tests {
		if got := ctx.Lookup(tt.path); got != tt.want {
			t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		`{{attrs.name`,
		`{{}}`,
		`{{the-child name}}`,
		`{{the-child name="x" name="y"}}`,
		`{{the-child name="x}}`,
		`{{the-child name=(readonly}}`,
		`{{the-child name=(concat a b)}}`,
		`{{helper arg}}`,
	}
	for _, src := range tests {
		_, err := Compile(src)
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("Compile(%q) error = %v, want SyntaxError", src, err)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	tmpl := MustCompile(`{{a-b x=attrs.x}}{{c-d y=1}} tail`)
	ctx := Context{Attrs: attrs.Attrs{"x": 1}}
	first, _ := tmpl.Evaluate(ctx)
	second, _ := tmpl.Evaluate(ctx)
	if render(t, first) != render(t, second) || len(first.Invocations) != len(second.Invocations) {
		t.Errorf("evaluation differs between calls")
	}
}

func TestFormat(t *testing.T) {
	if Format(nil) != "" || Format("s") != "s" || Format(42) != "42" {
		t.Error("unexpected Format output")
	}
}
