package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pagemanager/internal/acl"
	"github.com/yanizio/pagemanager/internal/auth"
	"github.com/yanizio/pagemanager/internal/block"
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/requestinfo"
	"github.com/yanizio/pagemanager/internal/variant"
)

type fakeUsers map[int64]auth.User

func (f fakeUsers) Load(_ context.Context, id int64) (auth.User, error) {
	u, ok := f[id]
	if !ok {
		return auth.User{}, acl.ErrUnknownUser
	}
	return u, nil
}

var users = fakeUsers{
	auth.AnonymousID: {ID: auth.AnonymousID, Roles: []string{"anonymous"}},
	5:                {ID: 5, Name: "bo", Roles: []string{"authenticated"}},
}

func newPage(t *testing.T, cfg page.Config) *page.Page {
	t.Helper()
	conds := plugin.NewManager("condition")
	condition.Register(conds)
	blocks := plugin.NewManager("block")
	block.Register(blocks, nil)
	variants := plugin.NewManager("variant")
	variant.Register(variants, variant.Deps{Conditions: conds, Blocks: blocks})
	return page.New(cfg, page.Plugins{Variants: variants, Conditions: conds})
}

// execute routes path through a chi router mounted at the page path and
// builds an Executable inside the handler.
func execute(t *testing.T, p *page.Page, path string, mutate func(*http.Request) *http.Request, providers ...page.Provider) (*page.Executable, error) {
	t.Helper()
	var (
		exec *page.Executable
		err  error
	)
	r := chi.NewRouter()
	r.Get(p.Path(), func(w http.ResponseWriter, req *http.Request) {
		exec, err = page.NewExecutable(req.Context(), p, req, condition.NewEvaluator(pagectx.NewHandler(nil)), providers...)
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		req = mutate(req)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return exec, err
}

func value(t *testing.T, exec *page.Executable, name string) any {
	t.Helper()
	c, ok := exec.Registry().Get(name)
	require.True(t, ok, "context %q missing", name)
	v, set := c.Value()
	require.True(t, set, "context %q has no value", name)
	return v
}

func TestCurrentUser(t *testing.T) {
	p := newPage(t, page.Config{ID: "home", Path: "/"})

	exec, err := execute(t, p, "/", nil, NewCurrentUser(users))
	require.NoError(t, err)
	assert.Equal(t, users[auth.AnonymousID], value(t, exec, CurrentUserName))

	exec, err = execute(t, p, "/", func(r *http.Request) *http.Request {
		return r.WithContext(auth.WithUser(r.Context(), 5))
	}, NewCurrentUser(users))
	require.NoError(t, err)
	assert.Equal(t, users[5], value(t, exec, CurrentUserName))

	// A token for a deleted user degrades to anonymous.
	exec, err = execute(t, p, "/", func(r *http.Request) *http.Request {
		return r.WithContext(auth.WithUser(r.Context(), 99))
	}, NewCurrentUser(users))
	require.NoError(t, err)
	assert.Equal(t, users[auth.AnonymousID], value(t, exec, CurrentUserName))
}

type brokenUsers struct{}

func (brokenUsers) Load(context.Context, int64) (auth.User, error) {
	return auth.User{}, errors.New("connection refused")
}

func TestCurrentUserLoadFailure(t *testing.T) {
	p := newPage(t, page.Config{ID: "home", Path: "/"})

	_, err := execute(t, p, "/", nil, NewCurrentUser(brokenUsers{}))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, acl.ErrUnknownUser))
}

func TestRequest(t *testing.T) {
	p := newPage(t, page.Config{ID: "home", Path: "/"})
	ri := &requestinfo.RequestInfo{UA: requestinfo.UA{Device: "Phone"}}

	exec, err := execute(t, p, "/", func(r *http.Request) *http.Request {
		return r.WithContext(requestinfo.WithInfo(r.Context(), ri))
	}, Request{})
	require.NoError(t, err)
	assert.Same(t, ri, value(t, exec, RequestName))

	exec, err = execute(t, p, "/", nil, Request{})
	require.NoError(t, err)
	c, ok := exec.Registry().Get(RequestName)
	require.True(t, ok)
	assert.False(t, c.HasValue())
}

func TestRouteParams(t *testing.T) {
	p := newPage(t, page.Config{
		ID: "node", Path: "/node/{node}/by/{account}/{page}/{slug}",
		Parameters: map[string]string{"node": "integer", "account": "entity:user"},
	})
	prov := NewRouteParams(map[string]Resolver{
		"integer":     Integer,
		"entity:user": User(users),
	})

	exec, err := execute(t, p, "/node/12/by/5/p/hello", nil, prov)
	require.NoError(t, err)
	assert.Equal(t, 12, value(t, exec, "node"))
	assert.Equal(t, users[5], value(t, exec, "account"))
	assert.Equal(t, "hello", value(t, exec, "slug"))

	_, reserved := exec.Registry().Get("page")
	assert.False(t, reserved, "page parameter is reserved")

	c, _ := exec.Registry().Get("slug")
	assert.Equal(t, page.DefaultParameterType, c.TypeID)

	_, err = execute(t, p, "/node/abc/by/5/p/hello", nil, prov)
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestAdminTimeContextsHaveNoValues(t *testing.T) {
	p := newPage(t, page.Config{ID: "node", Path: "/node/{node}", Parameters: map[string]string{"node": "integer"}})

	exec, err := page.NewExecutable(context.Background(), p, nil,
		condition.NewEvaluator(pagectx.NewHandler(nil)),
		NewCurrentUser(users), Request{}, NewRouteParams(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"current_user", "node", "request"}, exec.Registry().Names())
	for name, c := range exec.Contexts() {
		assert.False(t, c.HasValue(), name)
	}
}
