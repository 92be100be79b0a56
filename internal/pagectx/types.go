// internal/pagectx/types.go
//
// Type compatibility between what a context carries and what a slot wants.
//
// Rules (first match wins)
// ------------------------
//  1. Identical type ids are compatible.
//  2. The wildcard "any" accepts every type.
//  3. A derivative id "base:variant" satisfies "base", so "entity:user"
//     fits a slot that only wants "entity".
//  4. Explicit subtypes registered with RegisterSubtype, followed
//     transitively ("integer" → "number" → "scalar").

package pagectx

import (
	"strings"
	"sync"
)

// TypeAny on a slot definition accepts a context of every type.
const TypeAny = "any"

// Types is the type hierarchy.  Safe for concurrent use; usually built once
// at boot and then only read.
type Types struct {
	mu      sync.RWMutex
	parents map[string][]string
}

// NewTypes returns a hierarchy with the built-in scalar subtypes.
func NewTypes() *Types {
	t := &Types{parents: make(map[string][]string)}
	t.RegisterSubtype("integer", "number")
	t.RegisterSubtype("float", "number")
	return t
}

// RegisterSubtype records child as a subtype of parent.
func (t *Types) RegisterSubtype(child, parent string) {
	t.mu.Lock()
	t.parents[child] = append(t.parents[child], parent)
	t.mu.Unlock()
}

// Compatible reports whether a context of type have may fill a slot of type
// want.
func (t *Types) Compatible(have, want string) bool {
	if want == "" || want == TypeAny || have == want {
		return true
	}
	if base, _, ok := strings.Cut(have, ":"); ok && base == want {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := map[string]bool{have: true}
	queue := []string{have}
	if base, _, ok := strings.Cut(have, ":"); ok {
		queue = append(queue, base)
		seen[base] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range t.parents[cur] {
			if p == want {
				return true
			}
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false
}
