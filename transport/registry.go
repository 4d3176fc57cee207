package transport

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// Registry maintains a mapping of transport names to their builders.
// Transport packages should register themselves using Register.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// DefaultRegistry is the global transport registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new transport registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a transport builder to the registry. The name should match
// the Transport config value (e.g., "nats", "channel").
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Build creates an unconnected transport using the registered builder.
func (r *Registry) Build(name string, logger watermill.LoggerAdapter) (Transport, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transport: %q (registered: %v)", name, r.Names())
	}

	return builder(logger)
}

// Names returns the list of registered transport names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// Has returns true if a transport is registered with the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Register adds a transport builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// Build creates a transport using the default registry.
func Build(name string, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(name, logger)
}
