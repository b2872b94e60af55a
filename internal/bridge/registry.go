package bridge

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownFramework is matched by errors.Is for unregistered framework identifiers.
var ErrUnknownFramework = errors.New("unknown framework")

// UnknownFrameworkError names the framework identifier that had no adapter.
type UnknownFrameworkError struct{ Framework string }

func (e *UnknownFrameworkError) Error() string {
	return fmt.Sprintf("unknown framework: %q", e.Framework)
}

func (e *UnknownFrameworkError) Is(target error) bool { return target == ErrUnknownFramework }

// AdapterFunc wraps a user module into a Transformer for one framework.
type AdapterFunc func(mod Module, modelDir string) (Transformer, error)

// Registry maps framework identifiers to adapters. The set is fixed when the
// process starts; lookups of unknown identifiers fail.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]AdapterFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{adapters: make(map[string]AdapterFunc)} }

// DefaultRegistry returns a registry holding the built-in adapters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GenericFramework, GenericAdapter)
	return r
}

// Register adds or replaces the adapter for framework.
func (r *Registry) Register(framework string, fn AdapterFunc) {
	r.mu.Lock()
	r.adapters[framework] = fn
	r.mu.Unlock()
}

// Resolve returns the adapter for framework.
func (r *Registry) Resolve(framework string) (AdapterFunc, error) {
	r.mu.RLock()
	fn, ok := r.adapters[framework]
	r.mu.RUnlock()
	if !ok || fn == nil {
		return nil, &UnknownFrameworkError{Framework: framework}
	}
	return fn, nil
}

// Frameworks lists registered identifiers in sorted order.
func (r *Registry) Frameworks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
