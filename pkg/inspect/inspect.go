// Package inspect serves a devtools view of a running scheduler: the
// mounted tree, recent notifications and warnings, Prometheus metrics and
// a live websocket stream of everything the scheduler emits.
package inspect

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/cascade/pkg/attrs"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/paint"
)

// NodeView is the JSON form of one node.
type NodeView struct {
	ID       uint64      `json:"id"`
	Label    string      `json:"label"`
	Name     string      `json:"name,omitempty"`
	Key      string      `json:"key,omitempty"`
	Depth    int         `json:"depth"`
	Attrs    attrs.Attrs `json:"attrs,omitempty"`
	State    attrs.Attrs `json:"state,omitempty"`
	Text     string      `json:"text,omitempty"`
	Children []NodeView  `json:"children,omitempty"`
}

// WarningView is the JSON form of a deprecated-mutation warning.
type WarningView struct {
	NodeID  uint64   `json:"node"`
	Label   string   `json:"label"`
	Hook    string   `json:"hook"`
	Keys    []string `json:"keys"`
	Message string   `json:"message"`
}

// RunView is the JSON form of a run report.
type RunView struct {
	Passes   int       `json:"passes"`
	Nodes    int       `json:"nodes"`
	Duration string    `json:"duration"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Config configures an Inspector.
type Config struct {
	// Buffer, when set, adds the painted text to every node view.
	Buffer *paint.Buffer

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// Logger logs requests. Default: slog.Default()
	Logger *slog.Logger

	// Tracer opens a span per request. Default: the global provider's
	// "cascade/inspect" tracer.
	Tracer trace.Tracer

	// EventLimit bounds the retained notifications (default: 1000).
	EventLimit int
}

// Inspector keeps a snapshot of the scheduler's tree, refreshed after
// every run, and the most recent notifications.
type Inspector struct {
	config Config
	sched  *cascade.Scheduler
	hub    *Hub
	start  time.Time

	mu       sync.RWMutex
	tree     []NodeView
	events   []cascade.Event
	warnings []WarningView
	lastRun  *RunView

	unsubscribe []func()
}

// New attaches an inspector to sched. Call it from the scheduler's
// goroutine; the initial snapshot is taken immediately.
func New(sched *cascade.Scheduler, config Config) *Inspector {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer("cascade/inspect")
	}
	if config.EventLimit <= 0 {
		config.EventLimit = 1000
	}

	i := &Inspector{
		config: config,
		sched:  sched,
		hub:    NewHub(0),
		start:  time.Now(),
	}
	d := sched.Dispatcher()
	i.unsubscribe = []func(){
		d.Subscribe(i.onEvent),
		d.SubscribeWarnings(i.onWarning),
		d.SubscribeRuns(i.onRun),
	}
	i.Refresh()
	return i
}

// Hub returns the live stream hub.
func (i *Inspector) Hub() *Hub { return i.hub }

// Refresh re-reads the tree. It must run on the scheduler's goroutine.
func (i *Inspector) Refresh() {
	roots := i.sched.Roots()
	tree := make([]NodeView, 0, len(roots))
	for _, r := range roots {
		tree = append(tree, i.view(r))
	}
	i.mu.Lock()
	i.tree = tree
	i.mu.Unlock()
}

func (i *Inspector) view(n *cascade.Node) NodeView {
	v := NodeView{
		ID:    n.ID(),
		Label: n.Label(),
		Name:  n.Name(),
		Key:   n.Key(),
		Depth: n.Depth(),
		Attrs: n.Attrs(),
		State: n.State(),
	}
	if i.config.Buffer != nil {
		v.Text = i.config.Buffer.Text(n)
	}
	for _, c := range n.Children() {
		v.Children = append(v.Children, i.view(c))
	}
	return v
}

func (i *Inspector) onEvent(e cascade.Event) {
	i.mu.Lock()
	i.events = append(i.events, e)
	if over := len(i.events) - i.config.EventLimit; over > 0 {
		i.events = append(i.events[:0:0], i.events[over:]...)
	}
	i.mu.Unlock()
	i.hub.Publish(Message{Type: MessageEvent, Event: &e})
}

func (i *Inspector) onWarning(w *cascade.DeprecatedMutationWarning) {
	view := WarningView{
		NodeID:  w.NodeID,
		Label:   w.Label,
		Hook:    w.Hook.String(),
		Keys:    w.Keys,
		Message: w.Error(),
	}
	i.mu.Lock()
	i.warnings = append(i.warnings, view)
	i.mu.Unlock()
	i.hub.Publish(Message{Type: MessageWarning, Warning: &view})
}

func (i *Inspector) onRun(r cascade.RunReport) {
	view := &RunView{
		Passes:   r.Passes,
		Nodes:    r.Nodes,
		Duration: r.Duration.String(),
		At:       time.Now().UTC(),
	}
	if r.Err != nil {
		view.Error = r.Err.Error()
	}
	i.Refresh()
	i.mu.Lock()
	i.lastRun = view
	i.mu.Unlock()
	i.hub.Publish(Message{Type: MessageRun, Run: view})
}

// Router returns the HTTP handler.
//
//	GET /health    liveness and uptime
//	GET /tree      mounted roots as nested nodes
//	GET /events    recent notifications (?limit=n)
//	GET /warnings  deprecated-mutation warnings
//	GET /metrics   Prometheus metrics
//	GET /ws        live stream of events, warnings and runs
func (i *Inspector) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(i.traceRequests)

	r.Get("/health", i.handleHealth)
	r.Get("/tree", i.handleTree)
	r.Get("/events", i.handleEvents)
	r.Get("/warnings", i.handleWarnings)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(i.config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", i.hub.HandleWebSocket)
	return r
}

// traceRequests opens a server span per request and logs it at debug.
func (i *Inspector) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := i.config.Tracer.Start(r.Context(), "inspect "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		span.SetAttributes(attribute.Int("http.status", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		i.config.Logger.Debug("inspect request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (i *Inspector) handleHealth(w http.ResponseWriter, _ *http.Request) {
	i.mu.RLock()
	last := i.lastRun
	i.mu.RUnlock()
	i.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(i.start).Round(time.Millisecond).String(),
		"clients": i.hub.ClientCount(),
		"lastRun": last,
	})
}

func (i *Inspector) handleTree(w http.ResponseWriter, _ *http.Request) {
	i.mu.RLock()
	tree := i.tree
	i.mu.RUnlock()
	i.writeJSON(w, http.StatusOK, tree)
}

func (i *Inspector) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			i.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	i.mu.RLock()
	events := i.events
	if limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	out := make([]cascade.Event, len(events))
	copy(out, events)
	i.mu.RUnlock()
	i.writeJSON(w, http.StatusOK, out)
}

func (i *Inspector) handleWarnings(w http.ResponseWriter, _ *http.Request) {
	i.mu.RLock()
	out := make([]WarningView, len(i.warnings))
	copy(out, i.warnings)
	i.mu.RUnlock()
	i.writeJSON(w, http.StatusOK, out)
}

// Close unsubscribes from the scheduler and closes the live stream.
func (i *Inspector) Close() {
	for _, stop := range i.unsubscribe {
		stop()
	}
	i.hub.Close()
}

// writeJSON encodes v before writing the header, so a value that cannot be
// encoded yields a 500 instead of a truncated body.
func (i *Inspector) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		i.config.Logger.Error("encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response not encodable"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
