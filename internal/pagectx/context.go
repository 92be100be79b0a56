// internal/pagectx/context.go
//
// Named, typed runtime values handed to page plugins.
//
// Context
// -------
// A Context is produced by a provider (current user, route parameter,
// request info) and consumed by conditions and blocks through the slots
// they declare.  Type and label are fixed when the Context is built.  The
// value may be missing, for example a route parameter that is declared by
// the page path but absent from the admin preview, and can be set exactly
// once per request.
//
// Notes
// -----
// • A Definition describes what a plugin needs, never what it has.
// • Oxford commas, two spaces after periods.
package pagectx

import (
	"errors"
	"fmt"
)

// ErrValueAlreadySet is returned by SetValue on the second call.
var ErrValueAlreadySet = errors.New("context value already set")

// Context is one named value inside a Registry.  Name is stamped by
// Registry.AddContext.
type Context struct {
	Name     string
	TypeID   string // "entity:user", "string", "request_info", ...
	Label    string
	Required bool

	value any
	set   bool
}

// NewContext builds an empty Context of the given type.
func NewContext(typeID, label string) *Context {
	return &Context{TypeID: typeID, Label: label, Required: true}
}

// NewContextWithValue is shorthand for NewContext followed by SetValue.
func NewContextWithValue(typeID, label string, v any) *Context {
	c := NewContext(typeID, label)
	c.value, c.set = v, true
	return c
}

// SetValue binds the runtime value.  It may be called once.
func (c *Context) SetValue(v any) error {
	if c.set {
		return fmt.Errorf("%w: %s", ErrValueAlreadySet, c.Name)
	}
	c.value, c.set = v, true
	return nil
}

// Value returns the bound value and whether one was set.
func (c *Context) Value() (any, bool) { return c.value, c.set }

// HasValue reports whether SetValue has been called.
func (c *Context) HasValue() bool { return c.set }

// Definition is a context requirement declared by a plugin slot.
type Definition struct {
	Slot     string `yaml:"slot"     json:"slot"`
	TypeID   string `yaml:"type"     json:"type"`
	Label    string `yaml:"label"    json:"label,omitempty"`
	Required bool   `yaml:"required" json:"required"`
}

// Require returns a required Definition.  Plugins declare most slots this
// way since an unspecified slot is treated as required.
func Require(slot, typeID, label string) Definition {
	return Definition{Slot: slot, TypeID: typeID, Label: label, Required: true}
}

// Optional returns a non-required Definition.
func Optional(slot, typeID, label string) Definition {
	return Definition{Slot: slot, TypeID: typeID, Label: label}
}
