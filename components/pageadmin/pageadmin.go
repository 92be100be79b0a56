// components/pageadmin/pageadmin.go
//
// Page administration component – JSON API under /admin/pages.
//
//------------------------------------------------------------------------------

package pageadmin

import (
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/pagemanager/internal/acl"
	"github.com/yanizio/pagemanager/internal/component"
)

// Permission guarding every endpoint.
const (
	PermComponent = "pages"
	PermAction    = "administer"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component mounts the API behind the ACL guard.
type Component struct {
	svc component.Services
	api *API
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "pageadmin" }

// Prefix is the API mount point.
func (c *Component) Prefix() string { return "/admin/pages" }

// Migrations creates the ACL tables the guard reads.
func (c *Component) Migrations() []string { return acl.Schema }

// Init builds the API from the shared services.
func (c *Component) Init(svc component.Services) error {
	if svc.DB == nil || svc.Pages == nil {
		return errors.New("pageadmin: database and registry are required")
	}
	c.svc = svc
	c.api = NewAPI(svc.Pages, svc.Evaluator, svc.Conditions, svc.Blocks, svc.Providers...)
	return nil
}

// Routes wraps the API in acl.RequirePermission.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequirePermission(c.svc.DB.DB, PermComponent, PermAction))
	r.Mount("/", c.api.Routes())
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }
