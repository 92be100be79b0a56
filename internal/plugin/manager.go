// internal/plugin/manager.go
//
// Plugin manager (registry of definitions and factories).
//
// Context
// -------
// One Manager exists per plugin kind (variants, conditions, blocks).  The
// composition root registers every implementation at boot with a
// Definition and a Factory.  Pages never import concrete plugins; they ask
// the Manager to build an instance from a stored Config.
//
// Derivatives
// -----------
// A plugin family may register one definition per derivative id using the
// "base:derivative" form, for example "entity_view:node".  CreateInstance
// first tries the exact id, then the base id, so a single factory can serve
// all derivatives while each keeps its own context requirements.
//
// Notes
// -----
// • Safe for concurrent use.  Registration normally happens before the
//   server starts, lookups afterwards.
// • Oxford commas, two spaces after periods.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yanizio/pagemanager/internal/pagectx"
)

// ErrUnknownPlugin is returned when no definition matches a plugin id.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Definition describes one plugin implementation.
type Definition struct {
	ID       string               `json:"id"`
	Label    string               `json:"label"`
	Category string               `json:"category,omitempty"`
	Context  []pagectx.Definition `json:"context,omitempty"`
}

// Factory builds an instance from configuration and its definition.
type Factory func(cfg Config, def Definition) (Plugin, error)

// Manager holds the definitions of one plugin kind.
type Manager struct {
	kind string

	mu        sync.RWMutex
	defs      map[string]Definition
	factories map[string]Factory
}

// NewManager returns an empty Manager.  kind is only used in errors and logs.
func NewManager(kind string) *Manager {
	return &Manager{
		kind:      kind,
		defs:      make(map[string]Definition),
		factories: make(map[string]Factory),
	}
}

// Kind returns the label given to NewManager.
func (m *Manager) Kind() string { return m.kind }

// Register adds or replaces a definition.  A nil factory is allowed for
// derivative definitions whose base id already has one.
func (m *Manager) Register(def Definition, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs[def.ID] = def
	if f != nil {
		m.factories[def.ID] = f
	}
}

// RegisterDerivatives registers one definition per derivative, all served
// by the factory of base.
func (m *Manager) RegisterDerivatives(base string, f Factory, derive func() []Definition) {
	m.mu.Lock()
	m.factories[base] = f
	m.mu.Unlock()
	for _, d := range derive() {
		if !strings.HasPrefix(d.ID, base+":") {
			d.ID = base + ":" + d.ID
		}
		m.Register(d, nil)
	}
}

// Definition returns the definition for id.
func (m *Manager) Definition(id string) (Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[id]
	return d, ok
}

// Definitions returns every definition sorted by id.
func (m *Manager) Definitions() []Definition {
	m.mu.RLock()
	out := make([]Definition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateInstance builds the plugin named by id.
func (m *Manager) CreateInstance(id string, cfg Config) (Plugin, error) {
	m.mu.RLock()
	def, ok := m.defs[id]
	f := m.factories[id]
	if f == nil {
		if base, _, found := strings.Cut(id, ":"); found {
			f = m.factories[base]
		}
	}
	m.mu.RUnlock()

	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownPlugin, m.kind, id)
	}
	cfg.ID = id
	return f(cfg, def)
}

// DefinitionsForContexts returns the definitions whose required slots can
// all be filled from available.  Definitions with no required slots always
// pass.
func (m *Manager) DefinitionsForContexts(h *pagectx.Handler, available map[string]*pagectx.Context) []Definition {
	all := m.Definitions()
	out := make([]Definition, 0, len(all))
	for _, d := range all {
		if h.Satisfied(available, d.Context) {
			out = append(out, d)
		}
	}
	return out
}

// Instantiator adapts the Manager to the constructor a Bag expects,
// asserting the concrete kind T.
func Instantiator[T Plugin](m *Manager) func(Config) (T, error) {
	return func(cfg Config) (T, error) {
		var zero T
		p, err := m.CreateInstance(cfg.ID, cfg)
		if err != nil {
			return zero, err
		}
		t, ok := p.(T)
		if !ok {
			return zero, fmt.Errorf("%s plugin %q has unexpected type %T", m.kind, cfg.ID, p)
		}
		return t, nil
	}
}
