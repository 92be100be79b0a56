package block

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/requestinfo"
)

func manager() *plugin.Manager {
	m := plugin.NewManager("block")
	Register(m, map[string]Renderer{
		"user": func(e any, mode string) (template.HTML, error) {
			return template.HTML("user:" + mode), nil
		},
		"node": nil,
	})
	return m
}

func build(t *testing.T, m *plugin.Manager, cfg plugin.Config, values map[string]any) template.HTML {
	t.Helper()
	b, err := plugin.Instantiator[Block](m)(cfg)
	require.NoError(t, err)
	out, err := b.Build(values)
	require.NoError(t, err)
	return out
}

func TestMarkup(t *testing.T) {
	m := manager()
	assert.Equal(t, template.HTML("<b>hi</b>"),
		build(t, m, plugin.Config{ID: "markup", Settings: map[string]any{"body": "<b>hi</b>"}}, nil))
	assert.Equal(t, template.HTML("&lt;b&gt;"),
		build(t, m, plugin.Config{ID: "markup", Settings: map[string]any{"body": "<b>", "format": "text"}}, nil))
}

func TestEntityViewDerivatives(t *testing.T) {
	m := manager()

	def, ok := m.Definition("entity_view:user")
	require.True(t, ok)
	assert.Equal(t, []pagectx.Definition{pagectx.Require("entity", "entity:user", "Entity")}, def.Context)

	assert.Equal(t, template.HTML("user:teaser"), build(t, m, plugin.Config{
		ID:       "entity_view:user",
		Settings: map[string]any{"view_mode": "teaser"},
	}, map[string]any{"entity": 1}))

	out := build(t, m, plugin.Config{ID: "entity_view:node"}, map[string]any{"entity": "<x>"})
	assert.Equal(t, template.HTML(`<article class="entity view-mode-default">&lt;x&gt;</article>`), out)

	_, err := m.CreateInstance("entity_view:comment", plugin.Config{})
	assert.ErrorIs(t, err, plugin.ErrUnknownPlugin)
}

func TestEntityViewOnlyOfferedForMatchingContext(t *testing.T) {
	m := manager()
	h := pagectx.NewHandler(nil)
	avail := map[string]*pagectx.Context{
		"account": pagectx.NewContext("entity:user", "Account"),
	}

	var ids []string
	for _, d := range m.DefinitionsForContexts(h, avail) {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"entity_view:user", "markup"}, ids)
}

func TestRequestSummary(t *testing.T) {
	m := manager()
	ri := &requestinfo.RequestInfo{
		UA:  requestinfo.UA{Device: "Tablet"},
		Geo: requestinfo.Geo{CountryISO: "NL"},
	}
	assert.Equal(t, template.HTML(`<p class="visitor">Tablet from NL</p>`),
		build(t, m, plugin.Config{ID: "request_info"}, map[string]any{"request": ri}))
}
