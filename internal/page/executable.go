// internal/page/executable.go
//
// One execution of a page: context collection and variant selection.
//
// Context
// -------
// An Executable exists for exactly one request (or one admin screen).  It
// owns the context registry for that execution and fills it by calling
// every Provider in order:
//
//  1. NewExecutable runs the providers synchronously.  A later provider
//     that adds a context under an existing name replaces it.
//  2. Access checks the page's access conditions.
//  3. SelectVariant returns the first variant, in weight order, whose
//     selection conditions all pass.
//
// When the request is nil (admin screens) providers still declare their
// contexts, just without values.  That is enough for slot matching, so the
// admin API can list the conditions and blocks a page could use.
//
// Notes
// -----
// • "No variant" is a value, never an error.  The caller picks 404 or 403.
// • Oxford commas, two spaces after periods.
package page

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/variant"
)

// Provider contributes contexts to an execution.
type Provider interface {
	ProvideContexts(ctx context.Context, exec *Executable) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, exec *Executable) error

func (f ProviderFunc) ProvideContexts(ctx context.Context, exec *Executable) error {
	return f(ctx, exec)
}

// Executable is a page bound to one request's contexts.
type Executable struct {
	page *Page
	req  *http.Request
	reg  *pagectx.Registry
	eval *condition.Evaluator
}

// NewExecutable builds the registry for p by running providers in order.
// r may be nil for admin-time executions.
func NewExecutable(ctx context.Context, p *Page, r *http.Request, eval *condition.Evaluator, providers ...Provider) (*Executable, error) {
	e := &Executable{page: p, req: r, reg: pagectx.NewRegistry(), eval: eval}
	for i, prov := range providers {
		if err := prov.ProvideContexts(ctx, e); err != nil {
			return nil, fmt.Errorf("page %s: context provider %d: %w", p.ID(), i, err)
		}
	}
	zap.L().Debug("page contexts collected",
		zap.String("page", p.ID()),
		zap.Strings("contexts", e.reg.Names()))
	return e, nil
}

func (e *Executable) Page() *Page                 { return e.page }
func (e *Executable) Request() *http.Request      { return e.req }
func (e *Executable) Registry() *pagectx.Registry { return e.reg }
func (e *Executable) Evaluator() *condition.Evaluator {
	return e.eval
}

// AddContext registers c under name.  Last write wins.
func (e *Executable) AddContext(name string, c *pagectx.Context) {
	e.reg.AddContext(name, c)
}

// Contexts returns a copy of the collected contexts.
func (e *Executable) Contexts() map[string]*pagectx.Context {
	return e.reg.Contexts()
}

// Access reports whether every page access condition passes.
func (e *Executable) Access() bool {
	return e.eval.BagPasses(e.page.AccessConditions(), e.reg)
}

// SelectVariant picks the variant that should answer this execution.
func (e *Executable) SelectVariant() (variant.Variant, bool) {
	return SelectVariant(e.page.Variants(), e.reg, e.eval)
}

// SelectVariant walks variants in their current order and returns the first
// whose selection conditions pass.  A variant that cannot be instantiated
// is logged and skipped.
func SelectVariant(variants *variant.Bag, reg *pagectx.Registry, eval *condition.Evaluator) (variant.Variant, bool) {
	for _, id := range variants.UUIDs() {
		v, err := variants.Get(id)
		if err != nil {
			zap.L().Warn("variant skipped", zap.String("uuid", id), zap.Error(err))
			continue
		}
		if v.Access(eval, reg) {
			return v, true
		}
	}
	return nil, false
}
