// internal/condition/builtin.go
//
// Built-in condition plugins.
//
//   user_role      – current user holds ANY of `settings.roles`.
//   authenticated  – current user is not anonymous.
//   request_path   – request path matches ANY glob in `settings.pages`.
//   device_type    – parsed UA device class is in `settings.devices`.
//   country        – GeoIP country ISO code is in `settings.countries`.
//   route_param    – assigned value, printed, is in `settings.values`.
//
// Every plugin is registered by Register; the composition root calls it
// once on the condition manager.

package condition

import (
	"fmt"
	"path"
	"strings"

	"github.com/yanizio/pagemanager/internal/auth"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/requestinfo"
)

// Context type ids the built-ins depend on.
const (
	TypeUser    = "entity:user"
	TypeRequest = requestinfo.ContextType
)

// Register adds every built-in condition to m.
func Register(m *plugin.Manager) {
	userSlot := pagectx.Require("user", TypeUser, "User")
	reqSlot := pagectx.Require("request", TypeRequest, "Request")

	m.Register(plugin.Definition{
		ID: "user_role", Label: "User role", Category: "User",
		Context: []pagectx.Definition{userSlot},
	}, build(func(b plugin.Base) Condition { return &UserRole{Base: b} }))

	m.Register(plugin.Definition{
		ID: "authenticated", Label: "Authenticated user", Category: "User",
		Context: []pagectx.Definition{userSlot},
	}, build(func(b plugin.Base) Condition { return &Authenticated{Base: b} }))

	m.Register(plugin.Definition{
		ID: "request_path", Label: "Request path", Category: "Request",
		Context: []pagectx.Definition{reqSlot},
	}, build(func(b plugin.Base) Condition { return &RequestPath{Base: b} }))

	m.Register(plugin.Definition{
		ID: "device_type", Label: "Device type", Category: "Request",
		Context: []pagectx.Definition{reqSlot},
	}, build(func(b plugin.Base) Condition { return &DeviceType{Base: b} }))

	m.Register(plugin.Definition{
		ID: "country", Label: "Visitor country", Category: "Request",
		Context: []pagectx.Definition{reqSlot},
	}, build(func(b plugin.Base) Condition { return &Country{Base: b} }))

	m.Register(plugin.Definition{
		ID: "route_param", Label: "Route parameter value", Category: "Route",
		Context: []pagectx.Definition{pagectx.Require("value", pagectx.TypeAny, "Value")},
	}, build(func(b plugin.Base) Condition { return &RouteParam{Base: b} }))
}

func build(fn func(plugin.Base) Condition) plugin.Factory {
	return func(cfg plugin.Config, def plugin.Definition) (plugin.Plugin, error) {
		return fn(plugin.NewBase(cfg, def)), nil
	}
}

/*──────────────────────────── user conditions ─────────────────────────────*/

// UserRole passes when the user holds any configured role.
type UserRole struct{ plugin.Base }

func (c *UserRole) Evaluate(values map[string]any) (bool, error) {
	u, err := userValue(values["user"])
	if err != nil {
		return false, err
	}
	for _, want := range c.Config().Strings("roles") {
		if u.HasRole(want) {
			return true, nil
		}
	}
	return false, nil
}

// Authenticated passes for any logged-in user.
type Authenticated struct{ plugin.Base }

func (c *Authenticated) Evaluate(values map[string]any) (bool, error) {
	u, err := userValue(values["user"])
	if err != nil {
		return false, err
	}
	return !u.Anonymous(), nil
}

func userValue(v any) (auth.User, error) {
	switch u := v.(type) {
	case auth.User:
		return u, nil
	case *auth.User:
		if u != nil {
			return *u, nil
		}
	}
	return auth.User{}, fmt.Errorf("user slot holds %T", v)
}

/*──────────────────────────── request conditions ──────────────────────────*/

// RequestPath matches the request path against glob patterns.
type RequestPath struct{ plugin.Base }

func (c *RequestPath) Evaluate(values map[string]any) (bool, error) {
	ri, err := requestValue(values["request"])
	if err != nil {
		return false, err
	}
	if ri.URL == nil {
		return false, nil
	}
	p := ri.URL.Path
	for _, pattern := range c.Config().Strings("pages") {
		if ok, err := path.Match(pattern, p); err != nil {
			return false, fmt.Errorf("pattern %q: %w", pattern, err)
		} else if ok {
			return true, nil
		}
	}
	return false, nil
}

// DeviceType matches the parsed device class ("Desktop", "Phone", ...).
type DeviceType struct{ plugin.Base }

func (c *DeviceType) Evaluate(values map[string]any) (bool, error) {
	ri, err := requestValue(values["request"])
	if err != nil {
		return false, err
	}
	return containsFold(c.Config().Strings("devices"), ri.UA.Device), nil
}

// Country matches the GeoIP country ISO code.
type Country struct{ plugin.Base }

func (c *Country) Evaluate(values map[string]any) (bool, error) {
	ri, err := requestValue(values["request"])
	if err != nil {
		return false, err
	}
	if ri.Geo.CountryISO == "" {
		return false, nil
	}
	return containsFold(c.Config().Strings("countries"), ri.Geo.CountryISO), nil
}

func requestValue(v any) (*requestinfo.RequestInfo, error) {
	ri, ok := v.(*requestinfo.RequestInfo)
	if !ok || ri == nil {
		return nil, fmt.Errorf("request slot holds %T", v)
	}
	return ri, nil
}

/*──────────────────────────── route conditions ────────────────────────────*/

// RouteParam compares an assigned context value with a set of strings.
type RouteParam struct{ plugin.Base }

func (c *RouteParam) Evaluate(values map[string]any) (bool, error) {
	got := fmt.Sprint(values["value"])
	for _, want := range c.Config().Strings("values") {
		if want == got {
			return true, nil
		}
	}
	return false, nil
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}
