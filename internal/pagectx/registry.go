// internal/pagectx/registry.go
//
// Per-request context registry.  One Registry is created when a page starts
// executing, filled by every provider in registration order, and dropped
// with the request.  There is no removal; a later AddContext with the same
// name replaces the earlier one.

package pagectx

import "sort"

// Registry maps context name → *Context.  Zero value is not usable; call
// NewRegistry.
type Registry struct {
	contexts map[string]*Context
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[string]*Context)}
}

// AddContext registers c under name.  Last write wins.
func (r *Registry) AddContext(name string, c *Context) {
	c.Name = name
	r.contexts[name] = c
}

// Get returns the context registered under name.
func (r *Registry) Get(name string) (*Context, bool) {
	c, ok := r.contexts[name]
	return c, ok
}

// Contexts returns a copy of the mapping so callers may filter freely.
func (r *Registry) Contexts() map[string]*Context {
	out := make(map[string]*Context, len(r.contexts))
	for k, v := range r.contexts {
		out[k] = v
	}
	return out
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.contexts))
	for k := range r.contexts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len reports how many contexts are registered.
func (r *Registry) Len() int { return len(r.contexts) }
