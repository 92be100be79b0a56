// internal/provider/provider.go
//
// Context providers: the things that fill a page execution's registry.
//
// Context
// -------
// Each provider is a page.Provider.  The composition root lists them in
// order and every Executable runs them in that order:
//
//	CurrentUser  – "current_user" (entity:user) from the bearer token.
//	Request      – "request" (request_info) from the requestinfo middleware.
//	RouteParams  – one context per `{param}` in the page path.
//
// With a nil request (admin screens) every provider still adds its
// contexts, only without values.  Slot matching only looks at types, so
// this is enough to list compatible plugins and assignment options.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/acl"
	"github.com/yanizio/pagemanager/internal/auth"
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/requestinfo"
)

// Context names.
const (
	CurrentUserName = "current_user"
	RequestName     = "request"
)

/*──────────────────────────── current user ────────────────────────────────*/

// UserLoader resolves a user id to a full user.  *acl.Users implements it.
type UserLoader interface {
	Load(ctx context.Context, id int64) (auth.User, error)
}

// CurrentUser provides the "current_user" context.
type CurrentUser struct {
	users UserLoader
}

// NewCurrentUser returns a provider backed by users.
func NewCurrentUser(users UserLoader) *CurrentUser {
	return &CurrentUser{users: users}
}

// ProvideContexts implements page.Provider.
func (p *CurrentUser) ProvideContexts(ctx context.Context, exec *page.Executable) error {
	c := pagectx.NewContext(condition.TypeUser, "Current user")
	exec.AddContext(CurrentUserName, c)

	r := exec.Request()
	if r == nil {
		return nil
	}

	id, ok := auth.UserID(r.Context())
	if !ok {
		id = auth.AnonymousID
	}
	u, err := p.users.Load(ctx, id)
	if errors.Is(err, acl.ErrUnknownUser) && id != auth.AnonymousID {
		// Token outlived its user: serve the request as anonymous.
		zap.L().Debug("token user unknown, using anonymous", zap.Int64("uid", id))
		u, err = p.users.Load(ctx, auth.AnonymousID)
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", id, err)
	}
	return c.SetValue(u)
}

/*──────────────────────────── request ─────────────────────────────────────*/

// Request provides the "request" context.
type Request struct{}

// ProvideContexts implements page.Provider.
func (Request) ProvideContexts(_ context.Context, exec *page.Executable) error {
	c := pagectx.NewContext(requestinfo.ContextType, "Request")
	exec.AddContext(RequestName, c)

	r := exec.Request()
	if r == nil {
		return nil
	}
	ri := requestinfo.FromContext(r.Context())
	if ri == nil {
		zap.L().Debug("request info middleware not installed")
		return nil
	}
	return c.SetValue(ri)
}

/*──────────────────────────── route params ────────────────────────────────*/

// ErrBadParameter means a path segment could not be resolved to its
// declared type.  The dispatcher answers 404.
var ErrBadParameter = errors.New("bad route parameter")

// Resolver upcasts a raw path segment to the value of a parameter type.
type Resolver func(ctx context.Context, raw string) (any, error)

// RouteParams provides one context per path placeholder.
type RouteParams struct {
	resolvers map[string]Resolver
}

// NewRouteParams returns a provider using resolvers keyed by type id.  Types
// without a resolver keep the raw string.
func NewRouteParams(resolvers map[string]Resolver) *RouteParams {
	return &RouteParams{resolvers: resolvers}
}

// ProvideContexts implements page.Provider.
func (p *RouteParams) ProvideContexts(ctx context.Context, exec *page.Executable) error {
	pg := exec.Page()
	r := exec.Request()

	for _, name := range pg.ParameterNames() {
		// "page" is reserved for the page entity itself.
		if name == "page" {
			continue
		}
		typeID := pg.ParameterType(name)
		c := pagectx.NewContext(typeID, name)
		exec.AddContext(name, c)

		if r == nil {
			continue
		}
		raw := chi.URLParam(r, name)
		if raw == "" {
			continue
		}

		var v any = raw
		if resolve := p.resolvers[typeID]; resolve != nil {
			resolved, err := resolve(ctx, raw)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBadParameter, name, err)
			}
			v = resolved
		}
		if err := c.SetValue(v); err != nil {
			return err
		}
	}
	return nil
}

// Integer resolves "integer" parameters.
func Integer(_ context.Context, raw string) (any, error) {
	return strconv.Atoi(raw)
}

// User resolves "entity:user" parameters through users.
func User(users UserLoader) Resolver {
	return func(ctx context.Context, raw string) (any, error) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return users.Load(ctx, id)
	}
}
