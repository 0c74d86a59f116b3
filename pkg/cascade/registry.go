package cascade

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/cascade/pkg/template"
)

// Registry resolves component names to factories and templates. It is
// consulted once per node creation.
type Registry interface {
	ResolveComponent(name string) (Factory, error)
	ResolveTemplate(name string) (template.Template, error)
}

// MapRegistry is an in-memory Registry. It is safe for concurrent use.
type MapRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	templates map[string]template.Template
}

var _ Registry = (*MapRegistry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *MapRegistry {
	return &MapRegistry{
		factories: make(map[string]Factory),
		templates: make(map[string]template.Template),
	}
}

// Register adds a component and its template. A nil template renders nothing.
func (r *MapRegistry) Register(name string, factory Factory, tmpl template.Template) {
	if tmpl == nil {
		tmpl = template.Empty
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	r.templates[name] = tmpl
}

// RegisterTemplate replaces the template of a component.
func (r *MapRegistry) RegisterTemplate(name string, tmpl template.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = tmpl
}

// ResolveComponent returns the factory registered under name.
func (r *MapRegistry) ResolveComponent(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return f, nil
}

// ResolveTemplate returns the template registered under name.
func (r *MapRegistry) ResolveTemplate(name string) (template.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names returns the registered component names in sorted order.
func (r *MapRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
