// internal/page/page.go
//
// Page entity: a path owned by an ordered set of variants and guarded by
// access conditions.
//
// Context
// -------
// A page is identified by its machine name.  It owns two plugin bags:
//
//	variants  – tried in weight order; the first whose selection
//	            conditions pass answers the request.
//	access    – page-wide conditions checked before any variant.
//
// Pages are persisted as Config (see internal/store) and rebuilt with New.
// A page always has at least one variant: New adds a "Default"
// block_display (weight 10) when the configuration lists none.
//
// Notes
// -----
// • A Page is not safe for concurrent use.  The registry hands every
//   request its own copy built from Config.
// • Oxford commas, two spaces after periods.
package page

import (
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/routing"
	"github.com/yanizio/pagemanager/internal/variant"
)

// DefaultVariant is added to pages created without variants.
var DefaultVariant = plugin.Config{ID: "block_display", Label: "Default", Weight: 10}

// DefaultParameterType is the context type of an undeclared path parameter.
const DefaultParameterType = "string"

// Config is the persisted form of a page.
type Config struct {
	ID         string            `yaml:"id"                   json:"id"     validate:"required,max=64"`
	Label      string            `yaml:"label"                json:"label"  validate:"required"`
	Path       string            `yaml:"path"                 json:"path"   validate:"required"`
	Status     bool              `yaml:"status"               json:"status"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Variants   []plugin.Config   `yaml:"variants"             json:"variants"`
	Access     []plugin.Config   `yaml:"access,omitempty"     json:"access,omitempty"`
}

// Plugins are the managers a page builds its bags from.
type Plugins struct {
	Variants   *plugin.Manager
	Conditions *plugin.Manager
	UUIDs      plugin.UUIDGenerator
}

// Page is one configured page.
type Page struct {
	id     string
	label  string
	path   string
	status bool
	params map[string]string

	variants *variant.Bag
	access   *condition.Bag
}

// New builds a page from cfg.
func New(cfg Config, p Plugins) *Page {
	pg := &Page{
		id:       cfg.ID,
		label:    cfg.Label,
		path:     routing.NormalizePath(cfg.Path),
		status:   cfg.Status,
		params:   make(map[string]string, len(cfg.Parameters)),
		variants: variant.NewBag(p.Variants, p.UUIDs, cfg.Variants),
		access:   condition.NewBag(p.Conditions, p.UUIDs, cfg.Access),
	}
	for k, v := range cfg.Parameters {
		pg.params[k] = v
	}
	if pg.variants.Len() == 0 {
		pg.variants.AddInstanceID("", DefaultVariant)
	}
	pg.variants.Sort()
	pg.access.Sort()
	return pg
}

// Config snapshots the page for persistence.  New(p.Config(), ...) yields
// an equivalent page.
func (p *Page) Config() Config {
	cfg := Config{
		ID:       p.id,
		Label:    p.label,
		Path:     p.path,
		Status:   p.status,
		Variants: p.variants.Configurations(),
		Access:   p.access.Configurations(),
	}
	if len(p.params) > 0 {
		cfg.Parameters = p.Parameters()
	}
	return cfg
}

/*──────────────────────────── properties ──────────────────────────────────*/

func (p *Page) ID() string    { return p.id }
func (p *Page) Label() string { return p.label }
func (p *Page) Path() string  { return p.path }

// SetLabel renames the page.  The id never changes.
func (p *Page) SetLabel(label string) { p.label = label }

// SetPath replaces the path pattern.
func (p *Page) SetPath(path string) { p.path = routing.NormalizePath(path) }

// Enabled reports whether the page is routed.
func (p *Page) Enabled() bool { return p.status }
func (p *Page) Enable()       { p.status = true }
func (p *Page) Disable()      { p.status = false }

// Parameters returns a copy of the declared parameter types.
func (p *Page) Parameters() map[string]string {
	out := make(map[string]string, len(p.params))
	for k, v := range p.params {
		out[k] = v
	}
	return out
}

// SetParameterType declares the context type of a path parameter.
func (p *Page) SetParameterType(name, typeID string) { p.params[name] = typeID }

// ParameterNames lists the `{name}` placeholders of the path.
func (p *Page) ParameterNames() []string { return routing.ParamNames(p.path) }

// ParameterType returns the declared type of name, or DefaultParameterType.
func (p *Page) ParameterType(name string) string {
	if t := p.params[name]; t != "" {
		return t
	}
	return DefaultParameterType
}

/*──────────────────────────── variants ────────────────────────────────────*/

// Variants returns the weight-sorted variant bag.
func (p *Page) Variants() *variant.Bag { return p.variants }

// AddVariant stores cfg, re-sorts, and returns the variant's uuid.
func (p *Page) AddVariant(cfg plugin.Config) string {
	id := p.variants.AddInstanceID(cfg.UUID, cfg)
	p.variants.Sort()
	return id
}

// Variant returns one variant by uuid.
func (p *Page) Variant(uuid string) (variant.Variant, error) {
	return p.variants.Get(uuid)
}

// RemoveVariant deletes a variant.
func (p *Page) RemoveVariant(uuid string) error {
	return p.variants.RemoveInstanceID(uuid)
}

/*──────────────────────────── access conditions ───────────────────────────*/

// AccessConditions returns the page-wide condition bag.
func (p *Page) AccessConditions() *condition.Bag { return p.access }

// AddAccessCondition stores cfg and returns its uuid.
func (p *Page) AddAccessCondition(cfg plugin.Config) string {
	id := p.access.AddInstanceID(cfg.UUID, cfg)
	p.access.Sort()
	return id
}

// AccessCondition returns one access condition by uuid.
func (p *Page) AccessCondition(uuid string) (condition.Condition, error) {
	return p.access.Get(uuid)
}

// RemoveAccessCondition deletes an access condition.
func (p *Page) RemoveAccessCondition(uuid string) error {
	return p.access.RemoveInstanceID(uuid)
}
