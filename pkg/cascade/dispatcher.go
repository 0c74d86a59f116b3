package cascade

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/vango-dev/cascade/pkg/attrs"
)

// Event is one recorded lifecycle notification.
type Event struct {
	// Seq increases by one for every notification of a scheduler.
	Seq     uint64      `json:"seq"`
	NodeID  uint64      `json:"node"`
	Label   string      `json:"label"`
	Hook    Hook        `json:"hook"`
	Payload attrs.Attrs `json:"payload,omitempty"`
}

// String returns "label:hook".
func (e Event) String() string {
	return e.Label + ":" + e.Hook.String()
}

// Observer receives notifications in invocation order.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) { f(e) }

// RunReport summarises one outermost unit of work.
type RunReport struct {
	Passes   int
	Nodes    int
	Duration time.Duration
	Err      error
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// subscribers is a copy-on-write callback list.
type subscribers[T any] struct {
	mu     sync.Mutex
	nextID uint64
	list   []subscription[T]
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	list := make([]subscription[T], len(s.list), len(s.list)+1)
	copy(list, s.list)
	s.list = append(list, subscription[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := make([]subscription[T], 0, len(s.list))
		for _, sub := range s.list {
			if sub.id != id {
				list = append(list, sub)
			}
		}
		s.list = list
	}
}

func (s *subscribers[T]) emit(v T) {
	s.mu.Lock()
	list := s.list
	s.mu.Unlock()
	for _, sub := range list {
		sub.fn(v)
	}
}

// Dispatcher fans notifications out to observers. It makes no scheduling
// decisions.
type Dispatcher struct {
	seq      uint64
	events   subscribers[Event]
	warnings subscribers[*DeprecatedMutationWarning]
	runs     subscribers[RunReport]
}

// Subscribe registers fn for every notification. The returned function
// removes the subscription.
func (d *Dispatcher) Subscribe(fn func(Event)) func() {
	return d.events.add(fn)
}

// SubscribeWarnings registers fn for deprecated-mutation warnings.
func (d *Dispatcher) SubscribeWarnings(fn func(*DeprecatedMutationWarning)) func() {
	return d.warnings.add(fn)
}

// SubscribeRuns registers fn to run after every outermost unit of work, on
// the scheduler's goroutine. It is the safe place to read the tree from.
func (d *Dispatcher) SubscribeRuns(fn func(RunReport)) func() {
	return d.runs.add(fn)
}

func (d *Dispatcher) notify(n *Node, hook Hook, payload attrs.Attrs) {
	d.seq++
	d.events.emit(Event{
		Seq:     d.seq,
		NodeID:  n.id,
		Label:   n.label,
		Hook:    hook,
		Payload: payload.Clone(),
	})
}

// invoke calls the component's implementation of hook, if any.
func invoke(n *Node, hook Hook, payload attrs.Attrs) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	switch hook {
	case HookInit:
		return n.comp.Init(n)
	case HookWillUpdate:
		if c, ok := n.comp.(WillUpdater); ok {
			return c.WillUpdate(n)
		}
	case HookWillReceiveAttrs:
		if c, ok := n.comp.(AttrsReceiver); ok {
			return c.WillReceiveAttrs(n, payload)
		}
	case HookWillRender:
		if c, ok := n.comp.(WillRenderer); ok {
			return c.WillRender(n)
		}
	case HookDidInsertElement:
		if c, ok := n.comp.(ElementInserter); ok {
			return c.DidInsertElement(n)
		}
	case HookDidUpdate:
		if c, ok := n.comp.(DidUpdater); ok {
			return c.DidUpdate(n)
		}
	case HookDidRender:
		if c, ok := n.comp.(DidRenderer); ok {
			return c.DidRender(n)
		}
	case HookWillDestroyElement:
		if c, ok := n.comp.(ElementDestroyer); ok {
			return c.WillDestroyElement(n)
		}
	case HookDidDestroyElement:
		if c, ok := n.comp.(Destroyer); ok {
			return c.DidDestroyElement(n)
		}
	}
	return nil
}

// Recorder collects notifications and warnings in order. It is safe for
// concurrent use.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	warnings []*DeprecatedMutationWarning
}

var _ Observer = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Attach subscribes the recorder to a scheduler's notifications and
// warnings. The returned function detaches it.
func (r *Recorder) Attach(s *Scheduler) func() {
	stopEvents := s.Dispatcher().Subscribe(r.Observe)
	stopWarnings := s.Dispatcher().SubscribeWarnings(r.Warn)
	return func() {
		stopEvents()
		stopWarnings()
	}
}

// Observe records e.
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Warn records w.
func (r *Recorder) Warn(w *DeprecatedMutationWarning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

// Events returns the recorded notifications.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Strings returns the recorded notifications as "label:hook".
func (r *Recorder) Strings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.String()
	}
	return out
}

// Warnings returns the recorded warnings.
func (r *Recorder) Warnings() []*DeprecatedMutationWarning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*DeprecatedMutationWarning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.warnings = nil
}
