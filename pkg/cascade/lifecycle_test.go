package cascade_test

import (
	"testing"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/cascadetest"
)

// tomDale mounts the three-level top/middle/bottom tree used by most
// lifecycle tests.
func tomDale(t *testing.T, top, middle, bottom *cascadetest.Stub, opts ...cascade.Option) (*cascadetest.Harness, *cascade.Node) {
	t.Helper()
	h := cascadetest.New(t, opts...)
	h.Register("my-top", top.WithState(attrs.Attrs{"name": "Tom Dale"}),
		`Twitter: {{attrs.twitter}} {{my-middle name=name}}`)
	h.Register("my-middle", middle.WithState(attrs.Attrs{"website": "tomdale.net"}),
		`Name: {{attrs.name}} {{my-bottom website=website}}`)
	h.Register("my-bottom", bottom, `Website: {{attrs.website}}`)
	root := h.Mount(`{{my-top twitter=twitter}}`, attrs.Attrs{"twitter": "@tomdale"})
	return h, root
}

func stubs() (top, middle, bottom *cascadetest.Stub) {
	return cascadetest.NewStub("top"), cascadetest.NewStub("middle"), cascadetest.NewStub("bottom")
}

func defaultTree(t *testing.T, opts ...cascade.Option) (*cascadetest.Harness, *cascade.Node) {
	t.Helper()
	top, middle, bottom := stubs()
	return tomDale(t, top, middle, bottom, opts...)
}

func TestMountOrder(t *testing.T) {
	h, root := defaultTree(t)

	h.ExpectHooks(
		"top:init",
		"top:willRender",
		"middle:init",
		"middle:willRender",
		"bottom:init",
		"bottom:willRender",
		"bottom:didInsertElement",
		"bottom:didRender",
		"middle:didInsertElement",
		"middle:didRender",
		"top:didInsertElement",
		"top:didRender",
	)
	h.ExpectText(root, "Twitter: @tomdale Name: Tom Dale Website: tomdale.net")

	for _, label := range []string{"top", "middle", "bottom"} {
		n := h.Node(label)
		if !n.Mounted() {
			t.Errorf("%s should be mounted", label)
		}
		if n.Dirty() {
			t.Errorf("%s should not be dirty after mount", label)
		}
	}
	if got := h.Node("bottom").Depth(); got != 3 {
		t.Errorf("bottom depth = %d, want 3", got)
	}
}

func TestRerenderForcesSubtree(t *testing.T) {
	h, root := defaultTree(t)
	top := h.Node("top")
	h.Reset()

	h.Rerender(top)

	h.ExpectHooks(
		"top:willUpdate",
		"top:willRender",
		"middle:willUpdate",
		"middle:willReceiveAttrs",
		"middle:willRender",
		"bottom:willUpdate",
		"bottom:willReceiveAttrs",
		"bottom:willRender",
		"bottom:didUpdate",
		"bottom:didRender",
		"middle:didUpdate",
		"middle:didRender",
		"top:didUpdate",
		"top:didRender",
	)
	cascadetest.ExpectPayload(t, h.Recorder, "middle", cascade.HookWillReceiveAttrs, attrs.Attrs{"name": "Tom Dale"})
	cascadetest.ExpectPayload(t, h.Recorder, "bottom", cascade.HookWillReceiveAttrs, attrs.Attrs{"website": "tomdale.net"})
	h.ExpectText(root, "Twitter: @tomdale Name: Tom Dale Website: tomdale.net")
}

func TestRerenderLeafOnlyTouchesLeaf(t *testing.T) {
	h, _ := defaultTree(t)
	h.Reset()

	h.Rerender(h.Node("bottom"))

	h.ExpectHooks(
		"bottom:willUpdate",
		"bottom:willRender",
		"bottom:didUpdate",
		"bottom:didRender",
	)
}

func TestRootStateOnlyReachesChangedAttrs(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()

	h.Set(root, "twitter", "@hipstertomdale")

	h.ExpectHooks(
		"top:willUpdate",
		"top:willReceiveAttrs",
		"top:willRender",
		"top:didUpdate",
		"top:didRender",
	)
	cascadetest.ExpectPayload(t, h.Recorder, "top", cascade.HookWillReceiveAttrs, attrs.Attrs{"twitter": "@hipstertomdale"})
	h.ExpectText(root, "Twitter: @hipstertomdale Name: Tom Dale Website: tomdale.net")

	if got := h.Node("top").Attr("twitter"); got != "@hipstertomdale" {
		t.Errorf("top attrs not committed, twitter = %v", got)
	}
}

func TestOwnStateReachesDirectChildOnly(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()

	h.Set(h.Node("top"), "name", "Tom")

	h.ExpectHooks(
		"top:willUpdate",
		"top:willRender",
		"middle:willUpdate",
		"middle:willReceiveAttrs",
		"middle:willRender",
		"middle:didUpdate",
		"middle:didRender",
		"top:didUpdate",
		"top:didRender",
	)
	cascadetest.ExpectPayload(t, h.Recorder, "middle", cascade.HookWillReceiveAttrs, attrs.Attrs{"name": "Tom"})
	h.ExpectText(root, "Twitter: @tomdale Name: Tom Website: tomdale.net")
}

func TestForwardedStateCascades(t *testing.T) {
	h := cascadetest.New(t)
	h.Register("x-a", cascadetest.NewStub("a"), `A{{x-b value=attrs.value}}`)
	h.Register("x-b", cascadetest.NewStub("b"), `B{{x-c value=(readonly attrs.value)}}`)
	h.Register("x-c", cascadetest.NewStub("c"), `C:{{attrs.value}}`)
	root := h.Mount(`{{x-a value=value}}`, attrs.Attrs{"value": 1})
	h.Reset()

	h.Set(root, "value", 2)

	h.ExpectHooks(
		"a:willUpdate",
		"a:willReceiveAttrs",
		"a:willRender",
		"b:willUpdate",
		"b:willReceiveAttrs",
		"b:willRender",
		"c:willUpdate",
		"c:willReceiveAttrs",
		"c:willRender",
		"c:didUpdate",
		"c:didRender",
		"b:didUpdate",
		"b:didRender",
		"a:didUpdate",
		"a:didRender",
	)
	h.ExpectText(root, "ABC:2")
}

func TestRerenderInWillReceiveAttrsIsAbsorbed(t *testing.T) {
	top, middle, bottom := stubs()
	top.On(cascade.HookWillReceiveAttrs, func(n *cascade.Node, _ attrs.Attrs) error {
		return n.Rerender()
	})
	h, root := tomDale(t, top, middle, bottom)
	h.Reset()

	h.Set(root, "twitter", "@hipstertomdale")

	h.ExpectHooks(
		"top:willUpdate",
		"top:willReceiveAttrs",
		"top:willRender",
		"middle:willUpdate",
		"middle:willReceiveAttrs",
		"middle:willRender",
		"bottom:willUpdate",
		"bottom:willReceiveAttrs",
		"bottom:willRender",
		"bottom:didUpdate",
		"bottom:didRender",
		"middle:didUpdate",
		"middle:didRender",
		"top:didUpdate",
		"top:didRender",
	)
	h.ExpectText(root, "Twitter: @hipstertomdale Name: Tom Dale Website: tomdale.net")
}

func TestSetInDidInsertElementWarnsAndRendersTwice(t *testing.T) {
	h := cascadetest.New(t)
	tweet := cascadetest.NewStub("tweet").
		WithState(attrs.Attrs{"twitter": "@hipstertomdale"}).
		On(cascade.HookDidInsertElement, func(n *cascade.Node, _ attrs.Attrs) error {
			return n.Set("twitter", "@tomdale")
		})
	h.Register("my-tweet", tweet, `Twitter: {{twitter}}`)
	root := h.Mount(`{{my-tweet}}`, nil)

	h.ExpectHooks(
		"tweet:init",
		"tweet:willRender",
		"tweet:didInsertElement",
		"tweet:didRender",
		"tweet:willUpdate",
		"tweet:willRender",
		"tweet:didUpdate",
		"tweet:didRender",
	)
	h.ExpectText(root, "Twitter: @tomdale")

	warnings := h.Recorder.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	w := warnings[0]
	if w.Label != "tweet" || w.Hook != cascade.HookDidInsertElement {
		t.Errorf("warning for %s:%s, want tweet:didInsertElement", w.Label, w.Hook)
	}
	if len(w.Keys) != 1 || w.Keys[0] != "twitter" {
		t.Errorf("warning keys = %v, want [twitter]", w.Keys)
	}
	if got := h.Buffer.PaintsOf(h.Node("tweet")); got != 2 {
		t.Errorf("tweet painted %d times, want 2", got)
	}
}

func TestChildSettingParentStateRendersParentAgain(t *testing.T) {
	h := cascadetest.New(t)
	h.Register("x-parent", cascadetest.NewStub("parent").WithState(attrs.Attrs{"count": 0}),
		`Count: {{count}} {{x-child}}`)
	h.Register("x-child", cascadetest.NewStub("child").
		On(cascade.HookDidInsertElement, func(n *cascade.Node, _ attrs.Attrs) error {
			return n.Parent().Set("count", 1)
		}), ``)
	root := h.Mount(`{{x-parent}}`, nil)

	h.ExpectHooks(
		"parent:init",
		"parent:willRender",
		"child:init",
		"child:willRender",
		"child:didInsertElement",
		"child:didRender",
		"parent:didInsertElement",
		"parent:didRender",
		"parent:willUpdate",
		"parent:willRender",
		"parent:didUpdate",
		"parent:didRender",
	)
	cascadetest.ExpectWarnings(t, h.Recorder, 0)
	h.ExpectText(root, "Count: 1 ")
}

func TestRerenderDescendantFromDidUpdate(t *testing.T) {
	top, middle, bottom := stubs()
	armed := false
	middle.On(cascade.HookDidUpdate, func(n *cascade.Node, _ attrs.Attrs) error {
		if !armed {
			return nil
		}
		armed = false
		return n.Children()[0].Rerender()
	})
	h, _ := tomDale(t, top, middle, bottom)
	h.Reset()

	armed = true
	h.Rerender(h.Node("middle"))

	h.ExpectHooks(
		"middle:willUpdate",
		"middle:willRender",
		"bottom:willUpdate",
		"bottom:willReceiveAttrs",
		"bottom:willRender",
		"bottom:didUpdate",
		"bottom:didRender",
		"middle:didUpdate",
		"middle:didRender",
		"bottom:willUpdate",
		"bottom:willRender",
		"bottom:didUpdate",
		"bottom:didRender",
	)
}

func TestInitNeverRefires(t *testing.T) {
	inits := 0
	top, middle, bottom := stubs()
	top.On(cascade.HookInit, func(*cascade.Node, attrs.Attrs) error {
		inits++
		return nil
	})
	top.On(cascade.HookWillReceiveAttrs, func(n *cascade.Node, _ attrs.Attrs) error {
		return n.Rerender()
	})
	h, root := tomDale(t, top, middle, bottom)

	for i, handle := range []string{"@a", "@b", "@c"} {
		h.Set(root, "twitter", handle)
		if inits != 1 {
			t.Fatalf("after update %d init fired %d times", i+1, inits)
		}
	}
}
