package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/paint"
	"github.com/vango-dev/cascade/pkg/template"
	"github.com/vango-dev/cascade/pkg/tracestore"
)

// Result is the outcome of one scenario. The first step is always the
// mount.
type Result struct {
	Scenario string
	Steps    []StepResult
}

// StepResult is what one step produced and how it differed from the
// expectation.
type StepResult struct {
	Name     string
	Events   []cascade.Event
	Text     string
	Warnings int
	Err      error
	Failures []string
}

// Passed reports whether every step met its expectation.
func (r *Result) Passed() bool {
	for _, s := range r.Steps {
		if len(s.Failures) > 0 {
			return false
		}
	}
	return true
}

// Failures lists every mismatch prefixed with its step name.
func (r *Result) Failures() []string {
	var out []string
	for _, s := range r.Steps {
		for _, f := range s.Failures {
			out = append(out, s.Name+": "+f)
		}
	}
	return out
}

// Trace converts the result into a persistable trace recorded at at.
func (r *Result) Trace(at time.Time) *tracestore.Trace {
	t := &tracestore.Trace{
		ID:         tracestore.NewID(r.Scenario, at),
		Scenario:   r.Scenario,
		RecordedAt: at.UTC(),
		Passed:     r.Passed(),
	}
	for _, s := range r.Steps {
		step := tracestore.StepTrace{
			Name:     s.Name,
			Events:   s.Events,
			Text:     s.Text,
			Warnings: s.Warnings,
			Failures: s.Failures,
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		t.Steps = append(t.Steps, step)
	}
	return t
}

// Session is a prepared scenario: its components are registered and the
// scheduler exists, but nothing is mounted yet.
type Session struct {
	sc    *Scenario
	root  template.Template
	sched *cascade.Scheduler
	buf   *paint.Buffer
	rec   *cascade.Recorder
}

// Prepare compiles the scenario's templates and builds its scheduler. opts
// are applied after the session's own painter, so callers can add a
// logger, a tracer or metrics.
func Prepare(sc *Scenario, opts ...cascade.Option) (*Session, error) {
	reg := cascade.NewRegistry()
	for name, spec := range sc.Components {
		tmpl, err := template.Compile(spec.Template)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: component %s: %w", sc.Name, name, err)
		}
		factory, err := scriptedFactory(name, spec)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		reg.Register(name, factory, tmpl)
	}
	rootTmpl, err := template.Compile(sc.Root.Template)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: root template: %w", sc.Name, err)
	}

	buf := paint.NewBuffer()
	return &Session{
		sc:    sc,
		root:  rootTmpl,
		sched: cascade.New(reg, append([]cascade.Option{cascade.WithPainter(buf)}, opts...)...),
		buf:   buf,
		rec:   cascade.NewRecorder(),
	}, nil
}

// Scheduler returns the session's scheduler.
func (s *Session) Scheduler() *cascade.Scheduler { return s.sched }

// Buffer returns the painter holding the rendered text.
func (s *Session) Buffer() *paint.Buffer { return s.buf }

// Play mounts the root and plays the steps. Expectation mismatches are
// reported in the Result. The mounted tree is left in place.
func (s *Session) Play(ctx context.Context) *Result {
	detach := s.rec.Attach(s.sched)
	defer detach()
	rec, buf := s.rec, s.buf

	res := &Result{Scenario: s.sc.Name}

	root, err := s.sched.Mount(ctx, s.root, attrs.Attrs(s.sc.Root.State))
	res.Steps = append(res.Steps, observe("mount", s.sc.Mount, rec, buf, root, err))
	if err != nil {
		return res
	}

	for i, step := range s.sc.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		rec.Reset()
		err := apply(ctx, s.sched, root, step)
		res.Steps = append(res.Steps, observe(name, step.Expect, rec, buf, root, err))
	}
	return res
}

// Run prepares and plays sc. The returned error only reports scenarios
// that cannot be set up.
func Run(ctx context.Context, sc *Scenario, opts ...cascade.Option) (*Result, error) {
	s, err := Prepare(sc, opts...)
	if err != nil {
		return nil, err
	}
	return s.Play(ctx), nil
}

func apply(ctx context.Context, sched *cascade.Scheduler, root *cascade.Node, step Step) error {
	if step.Unmount {
		return sched.Unmount(ctx, root)
	}
	target := root
	if step.Target != "" {
		target = find(root, step.Target)
		if target == nil {
			return fmt.Errorf("no node labelled %q", step.Target)
		}
	}
	return sched.Run(ctx, func() error {
		if step.Rerender {
			return target.Rerender()
		}
		return target.SetAll(attrs.Attrs(step.Set))
	})
}

func find(n *cascade.Node, label string) *cascade.Node {
	if !n.Host() && n.Label() == label {
		return n
	}
	for _, c := range n.Children() {
		if found := find(c, label); found != nil {
			return found
		}
	}
	return nil
}

func observe(name string, want Expect, rec *cascade.Recorder, buf *paint.Buffer, root *cascade.Node, err error) StepResult {
	sr := StepResult{
		Name:     name,
		Events:   rec.Events(),
		Warnings: len(rec.Warnings()),
		Err:      err,
	}
	if root != nil {
		sr.Text = buf.Text(root)
	}
	failf := func(format string, args ...any) {
		sr.Failures = append(sr.Failures, fmt.Sprintf(format, args...))
	}

	got := make([]string, len(sr.Events))
	for i, e := range sr.Events {
		got[i] = e.String()
	}
	switch {
	case want.NoHooks && len(got) > 0:
		failf("expected no hooks, got %s", strings.Join(got, ", "))
	case want.Hooks != nil && strings.Join(want.Hooks, ",") != strings.Join(got, ","):
		failf("hooks:\n  want %s\n  got  %s", strings.Join(want.Hooks, ", "), strings.Join(got, ", "))
	}

	for _, p := range want.Payloads {
		var found bool
		for _, e := range sr.Events {
			if e.String() != p.Event {
				continue
			}
			found = true
			if !e.Payload.Equal(attrs.Attrs(p.Attrs)) {
				failf("%s payload = %v, want %v", p.Event, e.Payload, p.Attrs)
			}
			break
		}
		if !found {
			failf("no %s notification", p.Event)
		}
	}

	if want.Text != nil && *want.Text != sr.Text {
		failf("text = %q, want %q", sr.Text, *want.Text)
	}
	if want.Warnings != nil && *want.Warnings != sr.Warnings {
		failf("warnings = %d, want %d", sr.Warnings, *want.Warnings)
	}

	switch {
	case want.Error == "" && err != nil:
		failf("unexpected error: %v", err)
	case want.Error != "" && err == nil:
		failf("expected a %s error", want.Error)
	case want.Error != "" && cascade.ErrorKind(err) != want.Error:
		failf("error kind = %s (%v), want %s", cascade.ErrorKind(err), err, want.Error)
	}
	return sr
}

// scripted is the component behind every scenario component.
type scripted struct {
	label string
	state attrs.Attrs
	on    map[cascade.Hook][]Action
	fired map[cascade.Hook]map[int]bool
}

func scriptedFactory(name string, spec ComponentSpec) (cascade.Factory, error) {
	on := make(map[cascade.Hook][]Action, len(spec.On))
	for hookName, actions := range spec.On {
		h, err := cascade.ParseHook(hookName)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		on[h] = actions
	}
	label := spec.Label
	if label == "" {
		label = name
	}
	state := attrs.Attrs(spec.State).Clone()

	return func() cascade.Component {
		return &scripted{
			label: label,
			state: state,
			on:    on,
			fired: make(map[cascade.Hook]map[int]bool),
		}
	}, nil
}

var errScripted = errors.New("scripted failure")

func (s *scripted) Label() string { return s.label }

func (s *scripted) Init(n *cascade.Node) error {
	if len(s.state) > 0 {
		if err := n.SetAll(s.state); err != nil {
			return err
		}
	}
	return s.perform(cascade.HookInit, n)
}

func (s *scripted) WillUpdate(n *cascade.Node) error {
	return s.perform(cascade.HookWillUpdate, n)
}

func (s *scripted) WillReceiveAttrs(n *cascade.Node, _ attrs.Attrs) error {
	return s.perform(cascade.HookWillReceiveAttrs, n)
}

func (s *scripted) WillRender(n *cascade.Node) error {
	return s.perform(cascade.HookWillRender, n)
}

func (s *scripted) DidInsertElement(n *cascade.Node) error {
	return s.perform(cascade.HookDidInsertElement, n)
}

func (s *scripted) DidUpdate(n *cascade.Node) error {
	return s.perform(cascade.HookDidUpdate, n)
}

func (s *scripted) DidRender(n *cascade.Node) error {
	return s.perform(cascade.HookDidRender, n)
}

func (s *scripted) WillDestroyElement(n *cascade.Node) error {
	return s.perform(cascade.HookWillDestroyElement, n)
}

func (s *scripted) DidDestroyElement(n *cascade.Node) error {
	return s.perform(cascade.HookDidDestroyElement, n)
}

func (s *scripted) perform(h cascade.Hook, n *cascade.Node) error {
	for i, a := range s.on[h] {
		if a.Once {
			if s.fired[h] == nil {
				s.fired[h] = make(map[int]bool)
			}
			if s.fired[h][i] {
				continue
			}
			s.fired[h][i] = true
		}
		if err := a.do(n); err != nil {
			return err
		}
	}
	return nil
}

func (a Action) do(n *cascade.Node) error {
	switch {
	case a.Fail != "":
		return fmt.Errorf("%w: %s", errScripted, a.Fail)
	case a.Rerender:
		return n.Rerender()
	case a.Set != nil:
		return n.SetAll(attrs.Attrs(a.Set))
	case a.SetParent != nil:
		p := n.Parent()
		if p == nil {
			return errors.New("setParent on a root")
		}
		return p.SetAll(attrs.Attrs(a.SetParent))
	}
	return nil
}
