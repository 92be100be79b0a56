package pageadmin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pagemanager/internal/block"
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/provider"
	"github.com/yanizio/pagemanager/internal/registry"
	"github.com/yanizio/pagemanager/internal/store"
	"github.com/yanizio/pagemanager/internal/variant"
)

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	conds := plugin.NewManager("condition")
	condition.Register(conds)
	blocks := plugin.NewManager("block")
	block.Register(blocks, map[string]block.Renderer{"user": nil})
	variants := plugin.NewManager("variant")
	variant.Register(variants, variant.Deps{Conditions: conds, Blocks: blocks})

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg := registry.New(fs, page.Plugins{Variants: variants, Conditions: conds}, nil, 0)

	api := NewAPI(reg, condition.NewEvaluator(pagectx.NewHandler(nil)), conds, blocks,
		provider.NewCurrentUser(nil),
		provider.Request{},
		provider.NewRouteParams(nil),
	)
	return api.Routes()
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createSale adds the page used by most tests and returns its default
// variant uuid.
func createSale(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/", map[string]any{
		"label": "Spring Sale", "path": "sale/{code}",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cfg := decodeBody[page.Config](t, rec)
	require.Len(t, cfg.Variants, 1)
	return cfg.Variants[0].UUID
}

func TestCreatePage(t *testing.T) {
	h := newAPI(t)
	rec := call(t, h, http.MethodPost, "/", map[string]any{"label": "Spring Sale", "path": "sale/{code}"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cfg := decodeBody[page.Config](t, rec)
	assert.Equal(t, "spring_sale", cfg.ID)
	assert.Equal(t, "/sale/{code}", cfg.Path)
	assert.True(t, cfg.Status)
	require.Len(t, cfg.Variants, 1)
	assert.Equal(t, "block_display", cfg.Variants[0].ID)
	assert.Equal(t, 10, cfg.Variants[0].Weight)

	exists := decodeBody[map[string]bool](t, call(t, h, http.MethodGet, "/exists/spring_sale", nil))
	assert.True(t, exists["exists"])

	list := decodeBody[[]page.Config](t, call(t, h, http.MethodGet, "/", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "spring_sale", list[0].ID)
}

func TestCreatePageRejects(t *testing.T) {
	h := newAPI(t)
	createSale(t, h)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"duplicate", map[string]any{"label": "Spring Sale", "path": "/x"}, http.StatusConflict},
		{"bad machine name", map[string]any{"id": "Bad Id", "label": "B", "path": "/b"}, http.StatusUnprocessableEntity},
		{"missing path", map[string]any{"label": "No path"}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"label": "L", "path": "/l", "colour": "red"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h, http.MethodPost, "/", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreatePageDisabled(t *testing.T) {
	h := newAPI(t)
	rec := call(t, h, http.MethodPost, "/", map[string]any{"label": "Draft", "path": "/draft", "status": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decodeBody[page.Config](t, rec).Status)
}

func TestEnableDisableAndUpdate(t *testing.T) {
	h := newAPI(t)
	createSale(t, h)

	rec := call(t, h, http.MethodPost, "/spring_sale/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[page.Config](t, rec).Status)

	rec = call(t, h, http.MethodPost, "/spring_sale/enable", nil)
	assert.True(t, decodeBody[page.Config](t, rec).Status)

	assert.Equal(t, http.StatusUnprocessableEntity, call(t, h, http.MethodPost, "/spring_sale/archive", nil).Code)

	rec = call(t, h, http.MethodPut, "/spring_sale", map[string]any{
		"label": "Summer Sale", "parameters": map[string]string{"code": "integer"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg := decodeBody[page.Config](t, rec)
	assert.Equal(t, "Summer Sale", cfg.Label)
	assert.Equal(t, map[string]string{"code": "integer"}, cfg.Parameters)
}

func TestPageNotFoundAndDelete(t *testing.T) {
	h := newAPI(t)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/nope", nil).Code)

	createSale(t, h)
	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, "/spring_sale", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodDelete, "/spring_sale", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/spring_sale", nil).Code)
}

func TestVariants(t *testing.T) {
	h := newAPI(t)
	createSale(t, h)

	rec := call(t, h, http.MethodPost, "/spring_sale/variants", plugin.Config{
		ID: "http_status", Label: "Closed", Weight: -5, Settings: map[string]any{"status_code": 410},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[created](t, rec).UUID
	require.NotEmpty(t, id)

	cfg := decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	require.Len(t, cfg.Variants, 2)
	assert.Equal(t, id, cfg.Variants[0].UUID, "lighter variant sorts first")

	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPost, "/spring_sale/variants", plugin.Config{ID: "panels"}).Code)

	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPost, "/spring_sale/variants/"+id+"/blocks", plugin.Config{ID: "markup"}).Code,
		"http_status variants hold no blocks")

	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, "/spring_sale/variants/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodDelete, "/spring_sale/variants/"+id, nil).Code)
}

func TestAccessAndSelectionConditions(t *testing.T) {
	h := newAPI(t)
	vid := createSale(t, h)

	rec := call(t, h, http.MethodPost, "/spring_sale/access", plugin.Config{
		ID: "user_role", ContextAssignments: map[string]string{"user": "current_user"},
		Settings: map[string]any{"roles": []string{"editor"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accessID := decodeBody[created](t, rec).UUID

	rec = call(t, h, http.MethodPost, "/spring_sale/variants/"+vid+"/selection", plugin.Config{
		ID: "device_type", ContextAssignments: map[string]string{"request": "request"},
		Settings: map[string]any{"devices": []string{"Phone"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	selID := decodeBody[created](t, rec).UUID

	cfg := decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	require.Len(t, cfg.Access, 1)
	assert.Equal(t, "user_role", cfg.Access[0].ID)
	require.Len(t, cfg.Variants[0].SelectionConditions, 1)
	assert.Equal(t, selID, cfg.Variants[0].SelectionConditions[0].UUID)

	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPost, "/spring_sale/access", plugin.Config{ID: "moon_phase"}).Code)

	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, "/spring_sale/access/"+accessID, nil).Code)
	assert.Equal(t, http.StatusNoContent,
		call(t, h, http.MethodDelete, "/spring_sale/variants/"+vid+"/selection/"+selID, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		call(t, h, http.MethodDelete, "/spring_sale/variants/"+vid+"/selection/"+selID, nil).Code)

	cfg = decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	assert.Empty(t, cfg.Access)
	assert.Empty(t, cfg.Variants[0].SelectionConditions)
}

func TestBlocksAndRegions(t *testing.T) {
	h := newAPI(t)
	vid := createSale(t, h)
	base := "/spring_sale/variants/" + vid

	rec := call(t, h, http.MethodPost, base+"/blocks", plugin.Config{
		ID: "markup", Region: "top", Settings: map[string]any{"body": "<p>hi</p>"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bid := decodeBody[created](t, rec).UUID

	rec = call(t, h, http.MethodPut, base+"/regions", map[string]string{bid: "bottom"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cfg := decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	require.Len(t, cfg.Variants[0].Blocks, 1)
	assert.Equal(t, "bottom", cfg.Variants[0].Blocks[0].Region)

	assert.Equal(t, http.StatusNotFound,
		call(t, h, http.MethodPut, base+"/regions", map[string]string{"missing": "top"}).Code)

	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, base+"/blocks/"+bid, nil).Code)
	cfg = decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	assert.Empty(t, cfg.Variants[0].Blocks)
}

func TestAddRejectsUUIDInUse(t *testing.T) {
	h := newAPI(t)
	vid := createSale(t, h)
	base := "/spring_sale/variants/" + vid

	cases := []struct {
		path string
		cfg  plugin.Config
	}{
		{"/spring_sale/variants", plugin.Config{ID: "http_status", UUID: "dup", Settings: map[string]any{"status_code": 410}}},
		{"/spring_sale/access", plugin.Config{ID: "authenticated", UUID: "dup"}},
		{base + "/selection", plugin.Config{ID: "authenticated", UUID: "dup"}},
		{base + "/blocks", plugin.Config{ID: "markup", UUID: "dup", Region: "top"}},
	}
	for _, c := range cases {
		rec := call(t, h, http.MethodPost, c.path, c.cfg)
		require.Equal(t, http.StatusCreated, rec.Code, c.path+": "+rec.Body.String())
		assert.Equal(t, "dup", decodeBody[created](t, rec).UUID)

		c.cfg.Label = "second"
		assert.Equal(t, http.StatusUnprocessableEntity,
			call(t, h, http.MethodPost, c.path, c.cfg).Code, c.path)
	}

	// The default variant's uuid is taken too.
	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPost, "/spring_sale/variants", plugin.Config{ID: "block_display", UUID: vid}).Code)

	cfg := decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	require.Len(t, cfg.Variants, 2)
	require.Len(t, cfg.Access, 1)
	assert.Empty(t, cfg.Access[0].Label, "first instance kept")
}

func TestAvailablePlugins(t *testing.T) {
	h := newAPI(t)
	createSale(t, h)

	rec := call(t, h, http.MethodGet, "/spring_sale/available/conditions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ids []string
	for _, d := range decodeBody[[]plugin.Definition](t, rec) {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "user_role")
	assert.Contains(t, ids, "device_type")
	assert.Contains(t, ids, "route_param")

	rec = call(t, h, http.MethodGet, "/spring_sale/available/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	groups := decodeBody[map[string][]plugin.Definition](t, rec)
	require.Len(t, groups["Entity"], 1)
	assert.Equal(t, "entity_view:user", groups["Entity"][0].ID)
	require.Len(t, groups["Content"], 1)
	assert.Equal(t, "markup", groups["Content"][0].ID)
}

func TestBlockContextAssignments(t *testing.T) {
	h := newAPI(t)
	vid := createSale(t, h)
	base := "/spring_sale/variants/" + vid

	rec := call(t, h, http.MethodPost, base+"/blocks", plugin.Config{ID: "entity_view:user", Region: "top"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bid := decodeBody[created](t, rec).UUID

	rec = call(t, h, http.MethodGet, base+"/blocks/"+bid+"/assignments", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opts := decodeBody[map[string][]pagectx.Option](t, rec)
	assert.Equal(t, []pagectx.Option{{Name: "current_user", Label: "Current user"}}, opts["entity"])

	rec = call(t, h, http.MethodPut, base+"/blocks/"+bid+"/assignments", map[string]string{"entity": "current_user"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg := decodeBody[page.Config](t, call(t, h, http.MethodGet, "/spring_sale", nil))
	assert.Equal(t, map[string]string{"entity": "current_user"}, cfg.Variants[0].Blocks[0].ContextAssignments)

	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPut, base+"/blocks/"+bid+"/assignments", map[string]string{"entity": "request"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		call(t, h, http.MethodPut, base+"/blocks/"+bid+"/assignments", map[string]string{"node": "current_user"}).Code)
	assert.Equal(t, http.StatusNotFound,
		call(t, h, http.MethodGet, base+"/blocks/missing/assignments", nil).Code)
}
