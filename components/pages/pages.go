// components/pages/pages.go
//
// Pages component – serves every enabled page at its own path.
//
//------------------------------------------------------------------------------

package pages

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/pagemanager/internal/component"
	"github.com/yanizio/pagemanager/internal/routing"
	"github.com/yanizio/pagemanager/internal/store"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component owns the route table.
type Component struct {
	table *routing.Table
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "pages" }

// Prefix mounts the table at the site root.
func (c *Component) Prefix() string { return "/" }

// Migrations creates the page table.
func (c *Component) Migrations() []string { return []string{store.Schema} }

// Init builds the dispatcher, attaches the route table to the registry, and
// drops a page's cached layout whenever the page changes.
func (c *Component) Init(svc component.Services) error {
	if svc.Pages == nil || svc.Views == nil || svc.Evaluator == nil {
		return errors.New("pages: registry, views, and evaluator are required")
	}
	d := NewDispatcher(svc.Pages, svc.Views, svc.Evaluator, svc.Providers...)
	c.table = routing.NewTable(d)
	svc.Pages.Attach(c.table)
	svc.Pages.OnChange(svc.Views.Invalidate)
	return nil
}

// Routes forwards everything below the prefix to the route table.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Handle("/*", http.Handler(c.table))
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }
