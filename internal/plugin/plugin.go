// internal/plugin/plugin.go
//
// Plugin capability interfaces and the embeddable Base.

package plugin

import "github.com/yanizio/pagemanager/internal/pagectx"

// Plugin is implemented by every configured instance.
type Plugin interface {
	PluginID() string
	UUID() string
	Label() string
	Weight() int
	Configuration() Config
	SetConfiguration(Config)
}

// ContextAware plugins declare the context slots they consume.
type ContextAware interface {
	Plugin
	ContextDefinitions() []pagectx.Definition
}

// Base implements Plugin and ContextAware from a Config and a Definition.
// Concrete plugins embed it.
type Base struct {
	cfg Config
	def Definition
}

// NewBase copies cfg so later edits go through SetConfiguration.
func NewBase(cfg Config, def Definition) Base {
	return Base{cfg: cfg.Clone(), def: def}
}

func (b *Base) PluginID() string { return b.cfg.ID }
func (b *Base) UUID() string     { return b.cfg.UUID }
func (b *Base) Weight() int      { return b.cfg.Weight }

// Label falls back to the definition label when the instance has none.
func (b *Base) Label() string {
	if b.cfg.Label != "" {
		return b.cfg.Label
	}
	return b.def.Label
}

func (b *Base) Configuration() Config     { return b.cfg.Clone() }
func (b *Base) SetConfiguration(c Config) { b.cfg = c.Clone() }

// Definition returns the plugin definition the instance was built from.
func (b *Base) Definition() Definition { return b.def }

// ContextDefinitions returns the slots declared by the definition.
func (b *Base) ContextDefinitions() []pagectx.Definition { return b.def.Context }

// ContextAssignments returns slot → context name.
func (b *Base) ContextAssignments() map[string]string { return b.cfg.ContextAssignments }

// SetContextAssignments replaces every assignment of the instance.
func (b *Base) SetContextAssignments(a map[string]string) {
	b.cfg.ContextAssignments = make(map[string]string, len(a))
	for k, v := range a {
		b.cfg.ContextAssignments[k] = v
	}
}

// Config gives embedders direct read access without cloning.
func (b *Base) Config() *Config { return &b.cfg }
