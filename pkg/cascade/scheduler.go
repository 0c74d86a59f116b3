package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/template"
)

// Scheduler decides which nodes re-render after a state change, in which
// order, and which notifications each receives.
//
// A Scheduler is single-threaded: every call, including Set and Rerender on
// its nodes, must come from one goroutine at a time. Subscriptions may be
// added from anywhere.
type Scheduler struct {
	registry   Registry
	painter    Painter
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    Metrics
	dispatcher *Dispatcher

	maxReentrant int
	maxFlush     int

	nextID uint64
	roots  []*Node

	depth    int // Run nesting
	runSeq   uint64
	inPass   bool
	flushing bool
	hooks    []*Node // nodes whose notification is executing, innermost last

	passNodes int
	runPasses int
	runNodes  int
}

// New creates a Scheduler resolving components through registry.
func New(registry Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:     registry,
		painter:      nopPainter{},
		logger:       slog.Default().With("component", "cascade"),
		tracer:       defaultTracer(),
		metrics:      nopMetrics{},
		dispatcher:   &Dispatcher{},
		maxReentrant: DefaultMaxReentrantPasses,
		maxFlush:     DefaultMaxFlushPasses,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatcher returns the notification dispatcher.
func (s *Scheduler) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Subscribe is shorthand for Dispatcher().Subscribe.
func (s *Scheduler) Subscribe(fn func(Event)) func() {
	return s.dispatcher.Subscribe(fn)
}

// Roots returns the mounted roots in mount order.
func (s *Scheduler) Roots() []*Node {
	out := make([]*Node, len(s.roots))
	copy(out, s.roots)
	return out
}

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger {
	return s.logger
}

// Mount renders tmpl as a new host root. Host roots own state like any
// node but receive no lifecycle notifications.
func (s *Scheduler) Mount(ctx context.Context, tmpl template.Template, state attrs.Attrs) (*Node, error) {
	if tmpl == nil {
		return nil, &StructuralError{Component: "(root)", Err: ErrUnknownTemplate}
	}
	root := s.newNode(nil, "", nil, tmpl)
	root.host = true
	root.label = "(root)"
	root.state = state.Clone()
	root.pending = attrs.Attrs{}
	return root, s.mountRoot(ctx, root)
}

// MountComponent renders the named component as a new root with the given
// attrs.
func (s *Scheduler) MountComponent(ctx context.Context, name string, a attrs.Attrs) (*Node, error) {
	if s.inPass {
		return nil, ErrInPass
	}
	if a == nil {
		a = attrs.Attrs{}
	}
	root, err := s.create(nil, template.Invocation{Component: name}, a.Clone())
	if err != nil {
		return nil, err
	}
	return root, s.mountRoot(ctx, root)
}

func (s *Scheduler) mountRoot(ctx context.Context, root *Node) error {
	if s.inPass {
		return ErrInPass
	}
	s.roots = append(s.roots, root)

	err := s.Run(ctx, func() error {
		_, span := s.tracer.Start(ctx, "cascade.mount",
			trace.WithAttributes(attribute.String("cascade.root", root.label)))
		defer span.End()

		start := time.Now()
		err := s.guarded(root, s.mount)
		s.runPasses++
		s.runNodes += s.passNodes
		s.metrics.ObservePass(s.passNodes, time.Since(start))

		if err != nil {
			s.fail(span, err)
			root.clearFlags()
			s.removeRoot(root)
			root.destroyed = true
			return err
		}
		s.logger.Debug("mounted", "root", root.label, "nodes", s.passNodes, "duration", time.Since(start))
		return nil
	})
	return err
}

// Unmount tears a root down, firing teardown notifications for its subtree.
func (s *Scheduler) Unmount(ctx context.Context, root *Node) error {
	if root.parent != nil || !s.isRoot(root) {
		return ErrNotRoot
	}
	if s.inPass {
		return ErrInPass
	}
	return s.Run(ctx, func() error {
		err := s.guarded(root, s.teardown)
		s.removeRoot(root)
		return err
	})
}

// Run executes fn as one unit of work. State changes made by fn are
// coalesced and rendered by a single scheduling pass when the outermost Run
// returns. The first error of fn or of the flush is returned; rendering
// still happens when fn fails.
//
// Run called from inside a lifecycle notification simply calls fn: requests
// made there are resolved by the pass in flight.
func (s *Scheduler) Run(ctx context.Context, fn func() error) error {
	if s.inPass || s.flushing {
		if fn == nil {
			return nil
		}
		return fn()
	}

	if s.depth == 0 {
		s.runSeq++
		s.runPasses, s.runNodes = 0, 0
	}

	s.depth++
	err := func() error {
		defer func() { s.depth-- }()
		if fn == nil {
			return nil
		}
		return fn()
	}()
	if s.depth > 0 {
		return err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "cascade.run")
	defer span.End()

	if flushErr := s.flush(ctx); err == nil {
		err = flushErr
	}
	span.SetAttributes(
		attribute.Int("cascade.passes", s.runPasses),
		attribute.Int("cascade.nodes", s.runNodes),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	s.dispatcher.runs.emit(RunReport{
		Passes:   s.runPasses,
		Nodes:    s.runNodes,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// flush runs passes over every root with pending work until the tree is
// clean.
func (s *Scheduler) flush(ctx context.Context) error {
	s.flushing = true
	defer func() { s.flushing = false }()

	for iteration := 0; ; iteration++ {
		var pending []*Node
		for _, root := range s.roots {
			if root.needsWork() {
				pending = append(pending, root)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		if iteration >= s.maxFlush {
			s.sweep()
			err := fmt.Errorf("%w: run did not settle after %d passes", ErrReentrancyLimit, iteration)
			s.metrics.ObserveError(ErrorKind(err))
			return err
		}
		if err := ctx.Err(); err != nil {
			s.sweep()
			return err
		}

		for _, root := range pending {
			if root.destroyed {
				continue
			}
			if err := s.pass(ctx, root); err != nil {
				return err
			}
		}
	}
}

// pass revalidates one root's tree.
func (s *Scheduler) pass(ctx context.Context, root *Node) error {
	_, span := s.tracer.Start(ctx, "cascade.pass",
		trace.WithAttributes(attribute.String("cascade.root", root.label)))
	defer span.End()

	start := time.Now()
	err := s.guarded(root, s.revalidate)

	elapsed := time.Since(start)
	s.runPasses++
	s.runNodes += s.passNodes
	s.metrics.ObservePass(s.passNodes, elapsed)
	span.SetAttributes(attribute.Int("cascade.nodes", s.passNodes))

	if err != nil {
		s.fail(span, err)
		s.sweep()
		return err
	}
	s.logger.Debug("pass complete", "root", root.label, "nodes", s.passNodes, "duration", elapsed)
	return nil
}

// guarded runs step over root as one pass. A panic raised by a template, a
// painter or a subscriber ends the pass with a StructuralError; the in-pass
// state is reset either way.
func (s *Scheduler) guarded(root *Node, step func(*Node) error) (err error) {
	s.inPass = true
	s.passNodes = 0
	defer func() {
		s.inPass = false
		s.hooks = s.hooks[:0]
		if r := recover(); r != nil {
			err = &StructuralError{Component: root.name, Label: root.label, Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()
	return step(root)
}

func (s *Scheduler) fail(span trace.Span, err error) {
	kind := ErrorKind(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.ObserveError(kind)
	s.logger.Error("render pass failed", "kind", kind, "error", err)
}

// sweep clears every pending flag so no node stays dirty after a failed run.
func (s *Scheduler) sweep() {
	for _, root := range s.roots {
		root.clearFlags()
	}
}

// request records a render request for n and decides whether it needs a
// run of its own.
func (s *Scheduler) request(n *Node, force bool) error {
	if force {
		if h := s.currentHook(); h != nil && !n.within(h) {
			return fmt.Errorf("%w: %s from %s", ErrRerenderOutOfScope, n.label, h.label)
		}
		n.forced = true
	} else {
		n.dirty = true
	}

	// The node's template has not been evaluated yet in this pass, so the
	// request is absorbed by the render already under way.
	if n.phase == phaseStarting {
		return nil
	}
	n.markAncestors()

	if s.inPass || s.flushing || s.depth > 0 {
		return nil
	}
	return s.Run(context.Background(), nil)
}

func (s *Scheduler) currentHook() *Node {
	if len(s.hooks) == 0 {
		return nil
	}
	return s.hooks[len(s.hooks)-1]
}

func (s *Scheduler) newNode(parent *Node, name string, comp Component, tmpl template.Template) *Node {
	s.nextID++
	n := &Node{
		id:     s.nextID,
		name:   name,
		label:  name,
		comp:   comp,
		tmpl:   tmpl,
		sched:  s,
		parent: parent,
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	if l, ok := comp.(Labeler); ok {
		if label := l.Label(); label != "" {
			n.label = label
		}
	}
	return n
}

func (s *Scheduler) isRoot(n *Node) bool {
	for _, r := range s.roots {
		if r == n {
			return true
		}
	}
	return false
}

func (s *Scheduler) removeRoot(n *Node) {
	for i, r := range s.roots {
		if r == n {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return
		}
	}
}
