package cascade

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/cascade/pkg/template"
)

const (
	// DefaultMaxReentrantPasses bounds how often one node may be re-rendered
	// by requests made from its own completion hooks within a run.
	DefaultMaxReentrantPasses = 10

	// DefaultMaxFlushPasses bounds the passes of a single run.
	DefaultMaxFlushPasses = 32

	defaultTracerName = "cascade"
)

// Painter paints a node's rendered content. It is called once per render,
// after all of the node's children completed.
type Painter interface {
	Paint(n *Node, content template.Content)
}

// Eraser is implemented by painters that release a node's output when it
// is torn down.
type Eraser interface {
	Erase(n *Node)
}

// PainterFunc adapts a function to Painter.
type PainterFunc func(n *Node, content template.Content)

// Paint calls f.
func (f PainterFunc) Paint(n *Node, content template.Content) { f(n, content) }

type nopPainter struct{}

func (nopPainter) Paint(*Node, template.Content) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPainter sets the paint collaborator.
func WithPainter(p Painter) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.painter = p
		}
	}
}

// WithLogger sets the logger. Default: slog.Default() tagged with
// component=cascade.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer. Default: the global provider's
// "cascade" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithObserver subscribes o to every notification.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.dispatcher.Subscribe(o.Observe)
		}
	}
}

// WithWarningHandler subscribes fn to deprecated-mutation warnings.
func WithWarningHandler(fn func(*DeprecatedMutationWarning)) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.dispatcher.SubscribeWarnings(fn)
		}
	}
}

// WithMaxReentrantPasses sets the per-node re-entrant pass limit.
func WithMaxReentrantPasses(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxReentrant = n
		}
	}
}

// WithMaxFlushPasses sets the per-run pass limit.
func WithMaxFlushPasses(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxFlush = n
		}
	}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}
