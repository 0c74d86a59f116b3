package cascadetest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/paint"
	"github.com/vango-dev/cascade/pkg/template"
)

// Harness wires a registry, a scheduler, a recorder and a text painter.
type Harness struct {
	t *testing.T

	Registry  *cascade.MapRegistry
	Scheduler *cascade.Scheduler
	Recorder  *cascade.Recorder
	Buffer    *paint.Buffer
}

// New creates a harness. opts are applied after the harness' own painter
// and a discarding logger.
func New(t *testing.T, opts ...cascade.Option) *Harness {
	t.Helper()
	h := &Harness{
		t:        t,
		Registry: cascade.NewRegistry(),
		Recorder: cascade.NewRecorder(),
		Buffer:   paint.NewBuffer(),
	}
	base := []cascade.Option{
		cascade.WithPainter(h.Buffer),
		cascade.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	h.Scheduler = cascade.New(h.Registry, append(base, opts...)...)
	h.Recorder.Attach(h.Scheduler)
	return h
}

// Register compiles src and registers stub under name.
func (h *Harness) Register(name string, stub *Stub, src string) {
	h.t.Helper()
	tmpl, err := template.Compile(src)
	if err != nil {
		h.t.Fatalf("compile %s: %v", name, err)
	}
	h.Registry.Register(name, stub.Factory(), tmpl)
}

// Mount mounts src as a host root with state and fails the test on error.
func (h *Harness) Mount(src string, state attrs.Attrs) *cascade.Node {
	h.t.Helper()
	tmpl, err := template.Compile(src)
	if err != nil {
		h.t.Fatalf("compile root: %v", err)
	}
	root, err := h.Scheduler.Mount(context.Background(), tmpl, state)
	if err != nil {
		h.t.Fatalf("mount: %v", err)
	}
	return root
}

// Run runs fn as one unit of work and fails the test on error.
func (h *Harness) Run(fn func() error) {
	h.t.Helper()
	if err := h.Scheduler.Run(context.Background(), fn); err != nil {
		h.t.Fatalf("run: %v", err)
	}
}

// Set changes a state value of n and fails the test on error.
func (h *Harness) Set(n *cascade.Node, key string, value any) {
	h.t.Helper()
	if err := n.Set(key, value); err != nil {
		h.t.Fatalf("set %s.%s: %v", n.Label(), key, err)
	}
}

// Rerender rerenders n and fails the test on error.
func (h *Harness) Rerender(n *cascade.Node) {
	h.t.Helper()
	if err := n.Rerender(); err != nil {
		h.t.Fatalf("rerender %s: %v", n.Label(), err)
	}
}

// Node finds a node by label under every root. It fails the test when
// none matches.
func (h *Harness) Node(label string) *cascade.Node {
	h.t.Helper()
	for _, root := range h.Scheduler.Roots() {
		if n := Find(root, label); n != nil {
			return n
		}
	}
	h.t.Fatalf("no node labelled %q", label)
	return nil
}

// Text returns the painted text of n's subtree.
func (h *Harness) Text(n *cascade.Node) string {
	return h.Buffer.Text(n)
}

// Reset forgets recorded hooks and warnings.
func (h *Harness) Reset() {
	h.Recorder.Reset()
}

// ExpectHooks asserts the recorded "label:hook" sequence.
func (h *Harness) ExpectHooks(want ...string) {
	h.t.Helper()
	ExpectHooks(h.t, h.Recorder, want...)
}

// ExpectText asserts the painted text of n's subtree.
func (h *Harness) ExpectText(n *cascade.Node, want string) {
	h.t.Helper()
	if got := h.Text(n); got != want {
		h.t.Errorf("expected text %q, got %q", want, got)
	}
}

// ExpectHooks asserts that rec recorded exactly want, as "label:hook".
func ExpectHooks(t testing.TB, rec *cascade.Recorder, want ...string) {
	t.Helper()
	got := rec.Strings()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hook sequence mismatch:\n%s", sequenceDiff(want, got))
	}
}

// ExpectPayload asserts the payload of the first label:hook event.
func ExpectPayload(t testing.TB, rec *cascade.Recorder, label string, hook cascade.Hook, want attrs.Attrs) {
	t.Helper()
	for _, e := range rec.Events() {
		if e.Label != label || e.Hook != hook {
			continue
		}
		if !e.Payload.Equal(want) {
			t.Errorf("%s:%s payload = %v, want %v", label, hook, e.Payload, want)
		}
		return
	}
	t.Errorf("no %s:%s event recorded", label, hook)
}

// ExpectWarnings asserts how many deprecated-mutation warnings were raised.
func ExpectWarnings(t testing.TB, rec *cascade.Recorder, want int) {
	t.Helper()
	if got := len(rec.Warnings()); got != want {
		t.Errorf("expected %d warnings, got %d", want, got)
	}
}

func sequenceDiff(want, got []string) string {
	var sb strings.Builder
	n := len(want)
	if len(got) > n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		var w, g string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		mark := " "
		if w != g {
			mark = "!"
		}
		fmt.Fprintf(&sb, "%s %2d  want %-32s got %s\n", mark, i, w, g)
	}
	return sb.String()
}
