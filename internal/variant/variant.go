// internal/variant/variant.go
//
// Page variants: alternative ways of answering one page's path.
//
// Context
// -------
// A page owns an ordered bag of variants.  At request time the page walks
// that bag in weight order and serves the first variant whose selection
// conditions all pass.  Every variant therefore carries its own condition
// bag; what it does once selected is up to the plugin:
//
//	block_display  – resolves and renders blocks into named regions.
//	http_status    – answers with a fixed status code and no body.
//
// Variants are built through a plugin.Manager like every other plugin.
// Their factories receive the condition and block managers through Deps,
// so no variant ever reaches for a global.
//
// Notes
// -----
// • Configuration() always returns the nested bags' current state, so a
//   page can persist itself by asking each variant for its config.
// • Oxford commas, two spaces after periods.
package variant

import (
	"context"
	"html/template"

	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
)

// DefaultRegions are used when neither the variant nor Deps name any.
var DefaultRegions = []string{"top", "bottom"}

// Variant is implemented by every variant plugin.
type Variant interface {
	plugin.Plugin

	SelectionConditions() *condition.Bag
	AddSelectionCondition(cfg plugin.Config) string
	SelectionCondition(uuid string) (condition.Condition, error)
	RemoveSelectionCondition(uuid string) error

	// Access reports whether every selection condition passes.
	Access(eval *condition.Evaluator, reg *pagectx.Registry) bool
	Build(ctx context.Context, reg *pagectx.Registry, h *pagectx.Handler) (*Output, error)
}

// Output is what a selected variant hands to the renderer.
type Output struct {
	Status      int
	Title       string
	RegionOrder []string
	Regions     map[string][]template.HTML
}

// Bag is the ordered variant collection owned by a page.
type Bag = plugin.Bag[Variant]

// NewBag restores a variant Bag from configuration.
func NewBag(m *plugin.Manager, uuids plugin.UUIDGenerator, configs []plugin.Config) *Bag {
	return plugin.NewBag(plugin.Instantiator[Variant](m), uuids, configs)
}

// Deps are the collaborators variant factories need.
type Deps struct {
	Conditions *plugin.Manager
	Blocks     *plugin.Manager
	UUIDs      plugin.UUIDGenerator
	Regions    []string
}

// Register adds the built-in variants to m.
func Register(m *plugin.Manager, deps Deps) {
	if len(deps.Regions) == 0 {
		deps.Regions = DefaultRegions
	}

	m.Register(plugin.Definition{
		ID: "block_display", Label: "Block page", Category: "Layout",
	}, func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		return newBlockDisplay(cfg, def, deps), nil
	})

	m.Register(plugin.Definition{
		ID: "http_status", Label: "HTTP status code", Category: "Response",
	}, func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		return &HTTPStatus{selectable: newSelectable(cfg, def, deps)}, nil
	})
}

/*──────────────────────────── selection conditions ────────────────────────*/

// selectable is the part every variant shares: plugin state plus a
// selection condition bag.
type selectable struct {
	plugin.Base
	deps       Deps
	conditions *condition.Bag
}

func newSelectable(cfg plugin.Config, def plugin.Definition, deps Deps) selectable {
	s := selectable{deps: deps}
	s.Base = plugin.NewBase(plugin.Config{}, def)
	s.SetConfiguration(cfg)
	return s
}

func (s *selectable) SelectionConditions() *condition.Bag { return s.conditions }

func (s *selectable) AddSelectionCondition(cfg plugin.Config) string {
	return s.conditions.AddInstanceID(cfg.UUID, cfg)
}

func (s *selectable) SelectionCondition(uuid string) (condition.Condition, error) {
	return s.conditions.Get(uuid)
}

func (s *selectable) RemoveSelectionCondition(uuid string) error {
	return s.conditions.RemoveInstanceID(uuid)
}

func (s *selectable) Access(eval *condition.Evaluator, reg *pagectx.Registry) bool {
	return eval.BagPasses(s.conditions, reg)
}

// SetConfiguration replaces the plugin state and rebuilds the condition bag.
func (s *selectable) SetConfiguration(cfg plugin.Config) {
	conds := cfg.SelectionConditions
	cfg.SelectionConditions = nil
	s.Base.SetConfiguration(cfg)
	s.conditions = condition.NewBag(s.deps.Conditions, s.deps.UUIDs, conds)
	s.conditions.Sort()
}

// Configuration includes the live selection condition configs.
func (s *selectable) Configuration() plugin.Config {
	cfg := s.Base.Configuration()
	cfg.SelectionConditions = s.conditions.Configurations()
	return cfg
}
