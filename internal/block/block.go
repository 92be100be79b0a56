// internal/block/block.go
//
// Block plugins: the renderable units a block_display variant places into
// regions.
//
// Context
// -------
// A block is a context-aware plugin.  Like conditions, a block declares the
// slots it consumes; the variant resolves those slots against the request's
// context registry and hands the resulting values to Build.  The block's
// persisted configuration records its region (`region`) and weight.
//
// Built-ins
// ---------
//
//	markup            – static HTML (`settings.body`), or escaped text when
//	                    `settings.format` is "text".
//	entity_view:<t>   – one derivative per registered entity type, renders
//	                    the `entity` slot with the type's Renderer.
//	request_info      – small summary of device and visitor country.
//
// Notes
// -----
// • Block output is trusted HTML.  Only administrators author `markup`.
// • Oxford commas, two spaces after periods.
package block

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/requestinfo"
)

// Block is implemented by every block plugin.
type Block interface {
	plugin.ContextAware
	Build(values map[string]any) (template.HTML, error)
}

// Bag is the ordered block collection owned by a block_display variant.
type Bag = plugin.Bag[Block]

// NewBag restores a block Bag from configuration.
func NewBag(m *plugin.Manager, uuids plugin.UUIDGenerator, configs []plugin.Config) *Bag {
	return plugin.NewBag(plugin.Instantiator[Block](m), uuids, configs)
}

// Renderer turns an entity value into HTML for a view mode.
type Renderer func(entity any, viewMode string) (template.HTML, error)

// Register adds the built-in blocks to m.  entities maps an entity type
// ("user", "node", ...) to its renderer; a nil renderer uses DefaultRenderer.
func Register(m *plugin.Manager, entities map[string]Renderer) {
	m.Register(plugin.Definition{
		ID: "markup", Label: "Custom markup", Category: "Content",
	}, func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		return &Markup{Base: plugin.NewBase(cfg, def)}, nil
	})

	m.Register(plugin.Definition{
		ID: "request_info", Label: "Visitor summary", Category: "Request",
		Context: []pagectx.Definition{
			pagectx.Require("request", requestinfo.ContextType, "Request"),
		},
	}, func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		return &RequestSummary{Base: plugin.NewBase(cfg, def)}, nil
	})

	m.RegisterDerivatives("entity_view", func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		_, typ, _ := strings.Cut(cfg.ID, ":")
		r := entities[typ]
		if r == nil {
			r = DefaultRenderer
		}
		return &EntityView{Base: plugin.NewBase(cfg, def), render: r}, nil
	}, func() []plugin.Definition {
		return EntityViewDefinitions(entities)
	})
}

// EntityViewDefinitions derives one entity_view definition per entity type,
// sorted by type.
func EntityViewDefinitions(entities map[string]Renderer) []plugin.Definition {
	types := make([]string, 0, len(entities))
	for t := range entities {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]plugin.Definition, 0, len(types))
	for _, t := range types {
		out = append(out, plugin.Definition{
			ID:       "entity_view:" + t,
			Label:    "Entity view (" + t + ")",
			Category: "Entity",
			Context: []pagectx.Definition{
				pagectx.Require("entity", "entity:"+t, "Entity"),
			},
		})
	}
	return out
}

/*──────────────────────────── markup ──────────────────────────────────────*/

// Markup renders a fixed body.
type Markup struct{ plugin.Base }

func (b *Markup) Build(map[string]any) (template.HTML, error) {
	body := b.Config().String("body", "")
	if b.Config().String("format", "html") == "text" {
		return template.HTML(template.HTMLEscapeString(body)), nil
	}
	return template.HTML(body), nil
}

/*──────────────────────────── entity view ─────────────────────────────────*/

// EntityView renders the entity assigned to its `entity` slot.
type EntityView struct {
	plugin.Base
	render Renderer
}

func (b *EntityView) Build(values map[string]any) (template.HTML, error) {
	ent, ok := values["entity"]
	if !ok {
		return "", fmt.Errorf("entity_view: no entity value")
	}
	return b.render(ent, b.Config().String("view_mode", "default"))
}

var defaultTmpl = template.Must(template.New("entity").Parse(
	`<article class="entity view-mode-{{.Mode}}">{{.Entity}}</article>`))

// DefaultRenderer prints the entity value inside an <article>.
func DefaultRenderer(entity any, viewMode string) (template.HTML, error) {
	var buf bytes.Buffer
	err := defaultTmpl.Execute(&buf, struct {
		Entity any
		Mode   string
	}{entity, viewMode})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

/*──────────────────────────── request summary ─────────────────────────────*/

var summaryTmpl = template.Must(template.New("summary").Parse(
	`<p class="visitor">{{.UA.Device}}{{with .Geo.CountryISO}} from {{.}}{{end}}</p>`))

// RequestSummary shows the visitor's device class and country.
type RequestSummary struct{ plugin.Base }

func (b *RequestSummary) Build(values map[string]any) (template.HTML, error) {
	ri, ok := values["request"].(*requestinfo.RequestInfo)
	if !ok || ri == nil {
		return "", fmt.Errorf("request_info: request slot holds %T", values["request"])
	}
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, ri); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
