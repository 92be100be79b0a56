// internal/pagectx/handler.go
//
// Context handler: matches plugin slot definitions against the contexts a
// page execution makes available.
//
// Context
// -------
// Three questions come up over and over:
//
//  1. Which available contexts could fill slot X?          → ValidContexts
//  2. Can every required slot of a plugin be filled?       → Satisfied
//  3. What values does each slot receive at runtime, given
//     the plugin's stored context assignments?             → ResolveValues
//
// The first two are pure filters and never fail; an empty answer is the
// expected outcome of an under-provisioned registry.  Only ResolveValues
// returns an error, and callers evaluating conditions treat that error as
// "condition fails", not as a server fault.
//
// Notes
// -----
// • Required-ness is informational for ValidContexts.
// • Oxford commas, two spaces after periods.
package pagectx

import (
	"errors"
	"fmt"
)

// ErrUnsatisfied means a required slot could not be bound to a compatible
// context carrying a value.
var ErrUnsatisfied = errors.New("context requirement not satisfied")

// Handler performs context matching against a type hierarchy.
type Handler struct {
	types *Types
}

// NewHandler returns a Handler backed by types.  A nil types gets the
// built-in hierarchy.
func NewHandler(types *Types) *Handler {
	if types == nil {
		types = NewTypes()
	}
	return &Handler{types: types}
}

// Types exposes the hierarchy so boot code can register subtypes.
func (h *Handler) Types() *Types { return h.types }

// ValidContexts returns the subset of available whose type satisfies def.
func (h *Handler) ValidContexts(available map[string]*Context, def Definition) map[string]*Context {
	out := make(map[string]*Context)
	for name, c := range available {
		if h.types.Compatible(c.TypeID, def.TypeID) {
			out[name] = c
		}
	}
	return out
}

// Satisfied reports whether every required definition has at least one
// type-compatible context in available.  No required definitions → true.
func (h *Handler) Satisfied(available map[string]*Context, defs []Definition) bool {
	for _, def := range defs {
		if !def.Required {
			continue
		}
		if len(h.ValidContexts(available, def)) == 0 {
			return false
		}
	}
	return true
}

// ResolveValues binds each slot to a context and returns slot → value.
//
// The context for a slot is the one named in assignments; when the slot has
// no assignment, a context with the same name as the slot is tried.  A
// required slot fails with ErrUnsatisfied when the context is missing, of an
// incompatible type, or has no value.  Optional slots in the same situation
// are left out of the result.
func (h *Handler) ResolveValues(available map[string]*Context, defs []Definition, assignments map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(defs))
	for _, def := range defs {
		name := assignments[def.Slot]
		if name == "" {
			name = def.Slot
		}

		c, ok := available[name]
		switch {
		case !ok:
			if def.Required {
				return nil, fmt.Errorf("%w: slot %q: no context %q", ErrUnsatisfied, def.Slot, name)
			}
			continue
		case !h.types.Compatible(c.TypeID, def.TypeID):
			if def.Required {
				return nil, fmt.Errorf("%w: slot %q: context %q is %s, want %s",
					ErrUnsatisfied, def.Slot, name, c.TypeID, def.TypeID)
			}
			continue
		}

		v, set := c.Value()
		if !set {
			if def.Required {
				return nil, fmt.Errorf("%w: slot %q: context %q has no value", ErrUnsatisfied, def.Slot, name)
			}
			continue
		}
		values[def.Slot] = v
	}
	return values, nil
}

// Option is one selectable context for an assignment UI.
type Option struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// AssignmentOptions lists, per slot, the contexts an administrator may pick.
// Options are ordered by context name so the output is stable.
func (h *Handler) AssignmentOptions(reg *Registry, defs []Definition) map[string][]Option {
	all := reg.Contexts()
	out := make(map[string][]Option, len(defs))
	for _, def := range defs {
		valid := h.ValidContexts(all, def)
		opts := make([]Option, 0, len(valid))
		for _, name := range reg.Names() {
			if c, ok := valid[name]; ok {
				opts = append(opts, Option{Name: name, Label: c.Label})
			}
		}
		out[def.Slot] = opts
	}
	return out
}
