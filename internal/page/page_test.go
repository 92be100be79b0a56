package page

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pagemanager/internal/block"
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/variant"
)

type seqUUIDs struct{ n int }

func (s *seqUUIDs) Generate() string {
	s.n++
	return fmt.Sprintf("u%d", s.n)
}

// flag is a condition that records its name and returns settings.pass.
type flag struct {
	plugin.Base
	log *[]string
}

func (c *flag) Evaluate(map[string]any) (bool, error) {
	*c.log = append(*c.log, c.Config().String("name", ""))
	return c.Config().Settings["pass"] == true, nil
}

func testPlugins(log *[]string) Plugins {
	uuids := &seqUUIDs{}
	conds := plugin.NewManager("condition")
	condition.Register(conds)
	conds.Register(plugin.Definition{ID: "flag", Label: "Flag"},
		func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
			return &flag{Base: plugin.NewBase(cfg, def), log: log}, nil
		})

	blocks := plugin.NewManager("block")
	block.Register(blocks, nil)

	variants := plugin.NewManager("variant")
	variant.Register(variants, variant.Deps{Conditions: conds, Blocks: blocks, UUIDs: uuids})
	return Plugins{Variants: variants, Conditions: conds, UUIDs: uuids}
}

func gated(uuid string, weight int, pass bool) plugin.Config {
	return plugin.Config{
		ID: "block_display", UUID: uuid, Label: uuid, Weight: weight,
		SelectionConditions: []plugin.Config{{
			ID: "flag", UUID: uuid + "-c",
			Settings: map[string]any{"name": uuid, "pass": pass},
		}},
	}
}

func evaluator() *condition.Evaluator {
	return condition.NewEvaluator(pagectx.NewHandler(nil))
}

func TestNewAddsDefaultVariant(t *testing.T) {
	p := New(Config{ID: "about", Label: "About", Path: "about"}, testPlugins(new([]string)))

	require.Equal(t, 1, p.Variants().Len())
	cfg := p.Config()
	assert.Equal(t, "/about", cfg.Path)
	assert.Equal(t, []plugin.Config{{ID: "block_display", UUID: "u1", Label: "Default", Weight: 10}}, cfg.Variants)
}

func TestSelectVariantFirstPassingInWeightOrder(t *testing.T) {
	var log []string
	p := New(Config{ID: "promo", Path: "/promo", Variants: []plugin.Config{
		gated("V3", 2, true),
		gated("V1", 0, false),
		gated("V2", 1, true),
	}}, testPlugins(&log))

	v, ok := SelectVariant(p.Variants(), pagectx.NewRegistry(), evaluator())
	require.True(t, ok)
	assert.Equal(t, "V2", v.UUID())
	assert.Equal(t, []string{"V1", "V2"}, log)
}

func TestSelectVariantTieKeepsDeclarationOrder(t *testing.T) {
	var log []string
	p := New(Config{ID: "tie", Path: "/tie", Variants: []plugin.Config{
		gated("first", 5, true),
		gated("second", 5, true),
	}}, testPlugins(&log))

	for i := 0; i < 3; i++ {
		v, ok := SelectVariant(p.Variants(), pagectx.NewRegistry(), evaluator())
		require.True(t, ok)
		assert.Equal(t, "first", v.UUID())
	}
}

func TestSelectVariantNoneAccessible(t *testing.T) {
	var log []string
	plugins := testPlugins(&log)

	empty := variant.NewBag(plugins.Variants, plugins.UUIDs, nil)
	v, ok := SelectVariant(empty, pagectx.NewRegistry(), evaluator())
	assert.False(t, ok)
	assert.Nil(t, v)

	p := New(Config{ID: "closed", Path: "/closed", Variants: []plugin.Config{
		gated("A", 0, false),
		gated("B", 1, false),
		gated("C", 2, false),
	}}, plugins)
	v, ok = SelectVariant(p.Variants(), pagectx.NewRegistry(), evaluator())
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, []string{"A", "B", "C"}, log)
}

func TestSelectVariantSkipsBrokenVariant(t *testing.T) {
	p := New(Config{ID: "x", Path: "/x", Variants: []plugin.Config{
		{ID: "no_such_variant", UUID: "bad"},
		{ID: "block_display", UUID: "good", Weight: 1},
	}}, testPlugins(new([]string)))

	v, ok := SelectVariant(p.Variants(), pagectx.NewRegistry(), evaluator())
	require.True(t, ok)
	assert.Equal(t, "good", v.UUID())
}

func TestConfigRoundTrip(t *testing.T) {
	plugins := testPlugins(new([]string))
	cfg := Config{
		ID: "node_view", Label: "Node", Path: "/node/{node}", Status: true,
		Parameters: map[string]string{"node": "integer"},
		Variants: []plugin.Config{
			gated("b", 2, true),
			{ID: "http_status", UUID: "a", Weight: 1, Settings: map[string]any{"status_code": 403}},
		},
		Access: []plugin.Config{
			{ID: "flag", UUID: "acc", Negate: true, Settings: map[string]any{"name": "acc", "pass": false}},
		},
	}

	p := New(cfg, plugins)
	// Instantiate everything so live configs are snapshotted too.
	_, err := p.Variants().All()
	require.NoError(t, err)
	_, err = p.AccessConditions().All()
	require.NoError(t, err)

	saved := p.Config()
	assert.Equal(t, []string{"a", "b"}, p.Variants().UUIDs())

	again := New(saved, plugins)
	assert.Equal(t, saved, again.Config())
	assert.Equal(t, p.Variants().UUIDs(), again.Variants().UUIDs())
	assert.Equal(t, p.AccessConditions().UUIDs(), again.AccessConditions().UUIDs())
	assert.Equal(t, "integer", again.ParameterType("node"))
	assert.Equal(t, DefaultParameterType, again.ParameterType("other"))
}

func TestVariantAndAccessCRUD(t *testing.T) {
	p := New(Config{ID: "p", Path: "/p"}, testPlugins(new([]string)))

	id := p.AddVariant(plugin.Config{ID: "http_status", Weight: -5})
	assert.Equal(t, id, p.Variants().UUIDs()[0], "lighter variant sorts first")
	_, err := p.Variant(id)
	require.NoError(t, err)
	require.NoError(t, p.RemoveVariant(id))
	assert.ErrorIs(t, p.RemoveVariant(id), plugin.ErrNotFound)

	cid := p.AddAccessCondition(plugin.Config{ID: "authenticated"})
	_, err = p.AccessCondition(cid)
	require.NoError(t, err)
	require.NoError(t, p.RemoveAccessCondition(cid))
	_, err = p.AccessCondition(cid)
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}

func TestEnableDisable(t *testing.T) {
	p := New(Config{ID: "p", Path: "/p"}, testPlugins(new([]string)))
	assert.False(t, p.Enabled())
	p.Enable()
	assert.True(t, p.Config().Status)
	p.Disable()
	assert.False(t, p.Enabled())
}

func TestExecutableProvidersAndAccess(t *testing.T) {
	var log []string
	p := New(Config{ID: "p", Path: "/p", Access: []plugin.Config{
		{ID: "flag", UUID: "acc", Settings: map[string]any{"name": "acc", "pass": false}},
	}}, testPlugins(&log))

	first := ProviderFunc(func(_ context.Context, e *Executable) error {
		e.AddContext("who", pagectx.NewContextWithValue("string", "Who", "first"))
		return nil
	})
	second := ProviderFunc(func(_ context.Context, e *Executable) error {
		e.AddContext("who", pagectx.NewContextWithValue("string", "Who", "second"))
		return nil
	})

	exec, err := NewExecutable(context.Background(), p, nil, evaluator(), first, second)
	require.NoError(t, err)
	got, _ := exec.Contexts()["who"].Value()
	assert.Equal(t, "second", got)
	assert.False(t, exec.Access())

	_, ok := exec.SelectVariant()
	assert.True(t, ok, "default variant has no selection conditions")
}

func TestExecutableProviderError(t *testing.T) {
	boom := errors.New("boom")
	p := New(Config{ID: "p", Path: "/p"}, testPlugins(new([]string)))
	_, err := NewExecutable(context.Background(), p, nil, evaluator(),
		ProviderFunc(func(context.Context, *Executable) error { return boom }))
	assert.ErrorIs(t, err, boom)
}
