package cascade_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/cascadetest"
	"github.com/vango-dev/cascade/pkg/template"
)

func TestRunCoalescesChanges(t *testing.T) {
	h, root := defaultTree(t)
	var reports []cascade.RunReport
	h.Scheduler.Dispatcher().SubscribeRuns(func(r cascade.RunReport) {
		reports = append(reports, r)
	})
	h.Reset()

	top := h.Node("top")
	h.Run(func() error {
		if err := root.Set("twitter", "@hipstertomdale"); err != nil {
			return err
		}
		if err := top.Set("name", "Tom"); err != nil {
			return err
		}
		if len(h.Recorder.Events()) != 0 {
			t.Error("changes inside a run must not render before it ends")
		}
		return nil
	})

	h.ExpectHooks(
		"top:willUpdate",
		"top:willReceiveAttrs",
		"top:willRender",
		"middle:willUpdate",
		"middle:willReceiveAttrs",
		"middle:willRender",
		"middle:didUpdate",
		"middle:didRender",
		"top:didUpdate",
		"top:didRender",
	)
	if len(reports) != 1 {
		t.Fatalf("expected 1 run report, got %d", len(reports))
	}
	if reports[0].Passes != 1 {
		t.Errorf("expected a single pass, got %d", reports[0].Passes)
	}
	if reports[0].Err != nil {
		t.Errorf("unexpected run error: %v", reports[0].Err)
	}
}

func TestNestedRunsFlushOnce(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()

	h.Run(func() error {
		h.Run(func() error {
			return root.Set("twitter", "@a")
		})
		if len(h.Recorder.Events()) != 0 {
			t.Error("inner run must not flush")
		}
		return root.Set("twitter", "@b")
	})

	cascadetest.ExpectPayload(t, h.Recorder, "top", cascade.HookWillReceiveAttrs, attrs.Attrs{"twitter": "@b"})
	if got := strings.Count(strings.Join(h.Recorder.Strings(), " "), "top:willUpdate"); got != 1 {
		t.Errorf("top updated %d times, want 1", got)
	}
}

func TestUnchangedStateIsIdempotent(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()

	h.Set(root, "twitter", "@tomdale")
	h.ExpectHooks()

	h.Set(root, "twitter", "@x")
	h.Reset()
	h.Run(func() error { return root.Set("twitter", "@x") })
	h.ExpectHooks()
}

func TestRunReturnsCallbackErrorAndStillRenders(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()
	boom := errors.New("boom")

	err := h.Scheduler.Run(context.Background(), func() error {
		if err := root.Set("twitter", "@x"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	h.ExpectText(root, "Twitter: @x Name: Tom Dale Website: tomdale.net")
}

func TestHookErrorAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	armed := false
	top, middle, bottom := stubs()
	middle.On(cascade.HookWillRender, func(*cascade.Node, attrs.Attrs) error {
		if armed {
			return boom
		}
		return nil
	})
	h, root := tomDale(t, top, middle, bottom)
	h.Reset()

	armed = true
	err := h.Node("top").Rerender()
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var notification *cascade.NotificationError
	if !errors.As(err, &notification) {
		t.Fatalf("expected NotificationError, got %T", err)
	}
	if notification.Label != "middle" || notification.Hook != cascade.HookWillRender {
		t.Errorf("failure attributed to %s:%s", notification.Label, notification.Hook)
	}
	if kind := cascade.ErrorKind(err); kind != "notification" {
		t.Errorf("ErrorKind = %q", kind)
	}

	h.ExpectHooks(
		"top:willUpdate",
		"top:willRender",
		"middle:willUpdate",
		"middle:willReceiveAttrs",
		"middle:willRender",
	)
	for _, label := range []string{"top", "middle", "bottom"} {
		if h.Node(label).Dirty() {
			t.Errorf("%s left dirty after a failed run", label)
		}
	}

	armed = false
	h.Reset()
	h.Set(root, "twitter", "@recovered")
	h.ExpectHooks(
		"top:willUpdate",
		"top:willReceiveAttrs",
		"top:willRender",
		"top:didUpdate",
		"top:didRender",
	)
}

func TestHookPanicIsRecovered(t *testing.T) {
	armed := false
	top, middle, bottom := stubs()
	bottom.On(cascade.HookDidRender, func(*cascade.Node, attrs.Attrs) error {
		if armed {
			panic("kaboom")
		}
		return nil
	})
	h, _ := tomDale(t, top, middle, bottom)

	armed = true
	err := h.Node("bottom").Rerender()
	var p *cascade.PanicError
	if !errors.As(err, &p) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if p.Value != "kaboom" {
		t.Errorf("panic value = %v", p.Value)
	}
	if len(p.Stack) == 0 {
		t.Error("expected a stack trace")
	}
}

func TestUnknownComponentIsStructural(t *testing.T) {
	h := cascadetest.New(t)
	_, err := h.Scheduler.Mount(context.Background(), template.MustCompile(`{{my-missing}}`), nil)

	if !errors.Is(err, cascade.ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
	var structural *cascade.StructuralError
	if !errors.As(err, &structural) || structural.Component != "my-missing" {
		t.Fatalf("expected StructuralError for my-missing, got %v", err)
	}
	if len(h.Scheduler.Roots()) != 0 {
		t.Error("a failed mount must not leave a root behind")
	}
}

func TestTemplateErrorIsStructural(t *testing.T) {
	broken := errors.New("broken template")
	h := cascadetest.New(t)
	h.Registry.Register("x-broken", cascadetest.NewStub("broken").Factory(),
		template.Func(func(template.Context) (template.Output, error) {
			return template.Output{}, broken
		}))

	_, err := h.Scheduler.MountComponent(context.Background(), "x-broken", nil)
	if !errors.Is(err, broken) {
		t.Fatalf("expected broken, got %v", err)
	}
	if kind := cascade.ErrorKind(err); kind != "structural" {
		t.Errorf("ErrorKind = %q", kind)
	}
}

func TestRerenderOutsideNotifyingSubtree(t *testing.T) {
	armed := false
	var top *cascade.Node
	tp, middle, bottom := stubs()
	bottom.On(cascade.HookDidUpdate, func(*cascade.Node, attrs.Attrs) error {
		if armed {
			return top.Rerender()
		}
		return nil
	})
	h, _ := tomDale(t, tp, middle, bottom)
	top = h.Node("top")

	armed = true
	err := h.Node("bottom").Rerender()
	if !errors.Is(err, cascade.ErrRerenderOutOfScope) {
		t.Fatalf("expected ErrRerenderOutOfScope, got %v", err)
	}
	if top.Dirty() {
		t.Error("rejected rerender must not mark the target")
	}
}

func TestReentrancyLimit(t *testing.T) {
	h := cascadetest.New(t, cascade.WithMaxReentrantPasses(3))
	h.Register("x-loop", cascadetest.NewStub("loop").
		WithState(attrs.Attrs{"count": 0}).
		On(cascade.HookDidRender, func(n *cascade.Node, _ attrs.Attrs) error {
			return n.Set("count", n.Get("count").(int)+1)
		}), `{{count}}`)

	_, err := h.Scheduler.MountComponent(context.Background(), "x-loop", nil)
	if !errors.Is(err, cascade.ErrReentrancyLimit) {
		t.Fatalf("expected ErrReentrancyLimit, got %v", err)
	}
	if kind := cascade.ErrorKind(err); kind != "reentrancy" {
		t.Errorf("ErrorKind = %q", kind)
	}
	if len(h.Recorder.Warnings()) == 0 {
		t.Error("expected deprecated mutation warnings")
	}
}

func TestCanceledContextStopsFlush(t *testing.T) {
	h, root := defaultTree(t)
	h.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Scheduler.Run(ctx, func() error {
		return root.Set("twitter", "@x")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	h.ExpectHooks()
	if root.Dirty() {
		t.Error("root left dirty")
	}
}

func TestUnmountTearsDownSubtree(t *testing.T) {
	h, root := defaultTree(t)
	top := h.Node("top")
	h.Reset()

	if err := h.Scheduler.Unmount(context.Background(), top); !errors.Is(err, cascade.ErrNotRoot) {
		t.Fatalf("expected ErrNotRoot, got %v", err)
	}
	if err := h.Scheduler.Unmount(context.Background(), root); err != nil {
		t.Fatalf("unmount: %v", err)
	}

	h.ExpectHooks(
		"top:willDestroyElement",
		"middle:willDestroyElement",
		"bottom:willDestroyElement",
		"bottom:didDestroyElement",
		"middle:didDestroyElement",
		"top:didDestroyElement",
	)
	if len(h.Scheduler.Roots()) != 0 {
		t.Error("root still registered")
	}
	if h.Buffer.Painted(top) {
		t.Error("top content not erased")
	}
	if err := top.Set("name", "x"); !errors.Is(err, cascade.ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}
}

func TestMountComponentAsRoot(t *testing.T) {
	h := cascadetest.New(t)
	h.Register("my-bottom", cascadetest.NewStub("bottom"), `Website: {{attrs.website}}`)

	root, err := h.Scheduler.MountComponent(context.Background(), "my-bottom", attrs.Attrs{"website": "emberjs.com"})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	h.ExpectHooks(
		"bottom:init",
		"bottom:willRender",
		"bottom:didInsertElement",
		"bottom:didRender",
	)
	h.ExpectText(root, "Website: emberjs.com")
	if root.Host() {
		t.Error("component root reported as host")
	}
}

// listTemplate invokes one keyed x-item per entry of state "items".
var listTemplate = template.Func(func(ctx template.Context) (template.Output, error) {
	items, _ := ctx.Lookup("items").([]string)
	var out template.Output
	for i, item := range items {
		out.Invocations = append(out.Invocations, template.Invocation{
			Component: "x-item",
			Key:       item,
			Attrs:     map[string]template.Expr{"name": template.Lit(item)},
		})
		out.Content = append(out.Content, template.Slot(i))
	}
	return out, nil
})

func childIDs(n *cascade.Node) map[string]uint64 {
	ids := make(map[string]uint64)
	for _, c := range n.Children() {
		ids[c.Key()] = c.ID()
	}
	return ids
}

func TestKeyedChildrenKeepIdentity(t *testing.T) {
	h := cascadetest.New(t)
	h.Register("x-item", cascadetest.NewStub("item"), `{{attrs.name}}`)
	root, err := h.Scheduler.Mount(context.Background(), listTemplate, attrs.Attrs{"items": []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	h.ExpectText(root, "abc")
	before := childIDs(root)
	h.Reset()

	h.Set(root, "items", []string{"a", "c"})
	var hooks []string
	for _, e := range h.Recorder.Events() {
		if e.NodeID != before["b"] {
			t.Errorf("unexpected %s on node %d", e.Hook, e.NodeID)
		}
		hooks = append(hooks, e.Hook.String())
	}
	if strings.Join(hooks, ",") != "willDestroyElement,didDestroyElement" {
		t.Errorf("removal hooks = %v", hooks)
	}
	h.ExpectText(root, "ac")

	h.Reset()
	h.Set(root, "items", []string{"c", "a"})
	h.ExpectHooks()
	after := childIDs(root)
	if after["a"] != before["a"] || after["c"] != before["c"] {
		t.Errorf("reordering changed identities: before %v after %v", before, after)
	}
	if keys := root.Children(); keys[0].Key() != "c" || keys[1].Key() != "a" {
		t.Errorf("children not in invocation order")
	}
	h.ExpectText(root, "ca")

	h.Reset()
	h.Set(root, "items", []string{"c", "a", "d"})
	h.ExpectHooks("item:init", "item:willRender", "item:didInsertElement", "item:didRender")
	h.ExpectText(root, "cad")
}

type countingMetrics struct {
	passes    int
	hooks     int
	followUps int
	warnings  int
	errors    []string
}

func (m *countingMetrics) ObservePass(int, time.Duration) { m.passes++ }
func (m *countingMetrics) ObserveHook(cascade.Hook)       { m.hooks++ }
func (m *countingMetrics) ObserveFollowUp()               { m.followUps++ }
func (m *countingMetrics) ObserveWarning(cascade.Hook)    { m.warnings++ }
func (m *countingMetrics) ObserveError(kind string)       { m.errors = append(m.errors, kind) }

func TestMetricsAndObservers(t *testing.T) {
	m := &countingMetrics{}
	var seqs []uint64
	observer := cascade.ObserverFunc(func(e cascade.Event) {
		seqs = append(seqs, e.Seq)
	})
	h := cascadetest.New(t, cascade.WithMetrics(m), cascade.WithObserver(observer))
	h.Register("my-tweet", cascadetest.NewStub("tweet").
		On(cascade.HookDidInsertElement, func(n *cascade.Node, _ attrs.Attrs) error {
			return n.Set("twitter", "@tomdale")
		}), `Twitter: {{twitter}}`)
	h.Mount(`{{my-tweet}}`, nil)

	if m.hooks != len(h.Recorder.Events()) {
		t.Errorf("metrics saw %d hooks, recorder %d", m.hooks, len(h.Recorder.Events()))
	}
	if m.warnings != 1 || m.followUps != 1 {
		t.Errorf("warnings=%d followUps=%d, want 1 and 1", m.warnings, m.followUps)
	}
	if m.passes == 0 {
		t.Error("no pass observed")
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("event sequence numbers not contiguous: %v", seqs)
		}
	}
}

// fragile renders attrs.v and panics when it is 2.
var fragile = template.Func(func(ctx template.Context) (template.Output, error) {
	v := ctx.Lookup("attrs.v")
	if v == 2 {
		panic("cannot render 2")
	}
	return template.Output{Content: template.Content{template.Text(template.Format(v))}}, nil
})

func TestTemplatePanicDoesNotWedgeScheduler(t *testing.T) {
	h := cascadetest.New(t)
	h.Registry.Register("x-fragile", cascadetest.NewStub("fragile").Factory(), fragile)

	if _, err := h.Scheduler.Mount(context.Background(), template.MustCompile(`{{x-fragile v=v}}`), attrs.Attrs{"v": 2}); err == nil {
		t.Fatal("expected the mount to fail")
	}
	if len(h.Scheduler.Roots()) != 0 {
		t.Fatal("a failed mount must not leave a root behind")
	}

	root := h.Mount(`{{x-fragile v=v}}`, attrs.Attrs{"v": 1})
	h.Reset()

	err := root.Set("v", 2)
	var p *cascade.PanicError
	if !errors.As(err, &p) || p.Value != "cannot render 2" {
		t.Fatalf("expected the template panic, got %v", err)
	}
	var structural *cascade.StructuralError
	if !errors.As(err, &structural) || structural.Label != "fragile" {
		t.Fatalf("expected StructuralError for fragile, got %v", err)
	}
	if root.Dirty() || h.Node("fragile").Dirty() {
		t.Error("nodes left dirty after a panicking template")
	}

	h.Reset()
	h.Set(root, "v", 3)
	h.ExpectHooks(
		"fragile:willUpdate",
		"fragile:willReceiveAttrs",
		"fragile:willRender",
		"fragile:didUpdate",
		"fragile:didRender",
	)
	h.ExpectText(root, "3")

	if _, err := h.Scheduler.Mount(context.Background(), template.MustCompile(`{{x-fragile v=v}}`), attrs.Attrs{"v": 4}); err != nil {
		t.Fatalf("mount after a recovered panic: %v", err)
	}
}

func TestPainterPanicEndsPass(t *testing.T) {
	armed := false
	painter := cascade.PainterFunc(func(*cascade.Node, template.Content) {
		if armed {
			panic("paint failed")
		}
	})
	h, root := defaultTree(t, cascade.WithPainter(painter))

	armed = true
	err := root.Set("twitter", "@x")
	var p *cascade.PanicError
	if !errors.As(err, &p) || p.Value != "paint failed" {
		t.Fatalf("expected the painter panic, got %v", err)
	}
	if kind := cascade.ErrorKind(err); kind != "structural" {
		t.Errorf("ErrorKind = %q", kind)
	}

	armed = false
	h.Reset()
	h.Set(root, "twitter", "@y")
	cascadetest.ExpectPayload(t, h.Recorder, "top", cascade.HookWillReceiveAttrs, attrs.Attrs{"twitter": "@y"})
}

func TestSubscriberPanicEndsPass(t *testing.T) {
	h, root := defaultTree(t)
	armed := true
	stop := h.Scheduler.Dispatcher().Subscribe(func(e cascade.Event) {
		if armed && e.Label == "middle" {
			panic("observer failed")
		}
	})
	defer stop()

	err := h.Node("top").Rerender()
	var p *cascade.PanicError
	if !errors.As(err, &p) || p.Value != "observer failed" {
		t.Fatalf("expected the observer panic, got %v", err)
	}
	for _, label := range []string{"top", "middle", "bottom"} {
		if h.Node(label).Dirty() {
			t.Errorf("%s left dirty after a panicking observer", label)
		}
	}

	armed = false
	h.Reset()
	h.Set(root, "twitter", "@after")
	h.ExpectText(root, "Twitter: @after Name: Tom Dale Website: tomdale.net")
}

func TestRunSubscriberPanicLeavesSchedulerUsable(t *testing.T) {
	h, root := defaultTree(t)
	armed := true
	h.Scheduler.Dispatcher().SubscribeRuns(func(cascade.RunReport) {
		if armed {
			armed = false
			panic("report failed")
		}
	})

	func() {
		defer func() {
			if r := recover(); r != "report failed" {
				t.Errorf("recovered %v", r)
			}
		}()
		_ = root.Set("twitter", "@a")
	}()

	h.Reset()
	h.Set(root, "twitter", "@b")
	cascadetest.ExpectPayload(t, h.Recorder, "top", cascade.HookWillReceiveAttrs, attrs.Attrs{"twitter": "@b"})
	if _, err := h.Scheduler.Mount(context.Background(), template.MustCompile(`plain`), nil); err != nil {
		t.Errorf("mount after a panicking run subscriber: %v", err)
	}
}

// siblings mounts a host root rendering x-a and x-b from its state v. b
// fails in willReceiveAttrs while failB is set.
func siblings(t *testing.T, failB *bool) (*cascadetest.Harness, *cascade.Node) {
	t.Helper()
	h := cascadetest.New(t)
	h.Register("x-a", cascadetest.NewStub("a"), `A{{attrs.v}} `)
	h.Register("x-b", cascadetest.NewStub("b").
		On(cascade.HookWillReceiveAttrs, func(*cascade.Node, attrs.Attrs) error {
			if *failB {
				return errors.New("b rejects v")
			}
			return nil
		}), `B{{attrs.v}}/{{s}}`)
	root := h.Mount(`{{x-a v=v}}{{x-b v=v}}`, attrs.Attrs{"v": 1})
	h.ExpectText(root, "A1 B1/")
	return h, root
}

func TestCompletedSiblingSurvivesFailure(t *testing.T) {
	failB := true
	h, root := siblings(t, &failB)
	h.Reset()

	if err := root.Set("v", 2); err == nil {
		t.Fatal("expected b to fail")
	}
	h.ExpectHooks(
		"a:willUpdate",
		"a:willReceiveAttrs",
		"a:willRender",
		"a:didUpdate",
		"a:didRender",
		"b:willUpdate",
		"b:willReceiveAttrs",
	)
	a, b := h.Node("a"), h.Node("b")
	if got := a.Attr("v"); got != 2 {
		t.Errorf("a committed v = %v, want 2", got)
	}
	h.ExpectText(a, "A2 ")
	h.ExpectText(b, "B1/")
	h.ExpectText(root, "A2 B1/")
}

func TestAbortedAttrsAreNotCommittedLater(t *testing.T) {
	failB := true
	h, root := siblings(t, &failB)
	if err := root.Set("v", 2); err == nil {
		t.Fatal("expected b to fail")
	}
	b := h.Node("b")
	if b.PendingAttrs() != nil {
		t.Errorf("pending attrs kept after the failed run: %v", b.PendingAttrs())
	}

	h.Reset()
	h.Set(b, "s", "x")
	h.ExpectHooks(
		"b:willUpdate",
		"b:willRender",
		"b:didUpdate",
		"b:didRender",
	)
	if got := b.Attr("v"); got != 1 {
		t.Errorf("b committed v = %v without willReceiveAttrs", got)
	}
	h.ExpectText(b, "B1/x")

	failB = false
	h.Reset()
	h.Set(root, "v", 3)
	cascadetest.ExpectPayload(t, h.Recorder, "b", cascade.HookWillReceiveAttrs, attrs.Attrs{"v": 3})
	h.ExpectText(root, "A3 B3/x")
}

func TestDescendantRerenderFromStartHookIsOnePass(t *testing.T) {
	armed := false
	var bottom *cascade.Node
	top, middle, bt := stubs()
	top.On(cascade.HookWillRender, func(*cascade.Node, attrs.Attrs) error {
		if !armed {
			return nil
		}
		armed = false
		return bottom.Rerender()
	})
	h, _ := tomDale(t, top, middle, bt)
	bottom = h.Node("bottom")

	var reports []cascade.RunReport
	h.Scheduler.Dispatcher().SubscribeRuns(func(r cascade.RunReport) {
		reports = append(reports, r)
	})
	h.Reset()

	armed = true
	h.Set(h.Node("top"), "name", "Yehuda Katz")

	if got := strings.Count(strings.Join(h.Recorder.Strings(), " "), "bottom:willUpdate"); got != 1 {
		t.Errorf("bottom updated %d times, want 1", got)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 run report, got %d", len(reports))
	}
	if reports[0].Passes != 1 || reports[0].Nodes != 3 {
		t.Errorf("passes=%d nodes=%d, want 1 and 3", reports[0].Passes, reports[0].Nodes)
	}
	for _, n := range []*cascade.Node{h.Scheduler.Roots()[0], h.Node("top"), h.Node("middle"), bottom} {
		if n.Dirty() {
			t.Errorf("%s left dirty", n.Label())
		}
	}
}
