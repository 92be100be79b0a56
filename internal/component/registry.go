// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each HTTP surface lives under components/<name> and calls
// component.Register() in an init() function.  The composition root
// blank-imports the components, runs their migrations, calls Init with the
// shared Services, and mounts every component’s Routes() at its Prefix().
//
// Notes
// -----
// • Components never import each other; they meet through Services.
// • Oxford commas, two spaces after periods.

package component

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/registry"
	"github.com/yanizio/pagemanager/internal/view"
)

// Services are the shared collaborators handed to every component.
type Services struct {
	DB         *sqlx.DB
	Pages      *registry.Registry
	Views      *view.Engine
	Evaluator  *condition.Evaluator
	Providers  []page.Provider
	Conditions *plugin.Manager
	Blocks     *plugin.Manager
	Variants   *plugin.Manager
}

// Initializer receives Services once, before Routes is called.
type Initializer interface {
	Init(Services) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() is mounted at Prefix(), e.g:
//
//	r := chi.NewRouter()
//	r.Get("/", list)
//	r.Route("/{page}", func(pr chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
	Migrations() []string
	Initializer
}

var (
	mu         sync.RWMutex
	components = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	components[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(components))
	for _, c := range components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Migrate executes every component's statements in name order.
func Migrate(ctx context.Context, db *sqlx.DB, comps []Component) error {
	for _, c := range comps {
		for i, stmt := range c.Migrations() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s migration %d: %w", c.Name(), i, err)
			}
		}
	}
	return nil
}

// Mount initialises comps and mounts their routes on r.
func Mount(r chi.Router, svc Services, comps []Component) error {
	for _, c := range comps {
		if err := c.Init(svc); err != nil {
			return fmt.Errorf("%s init: %w", c.Name(), err)
		}
		r.Mount(c.Prefix(), c.Routes())
	}
	return nil
}
