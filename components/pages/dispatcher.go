// components/pages/dispatcher.go
//
// Public page dispatcher.
//
// Context
// -------
// The route table matches a request to a page id and hands it here.  One
// request runs the whole page pipeline:
//
//  1. Load the page from the registry (unknown or disabled → 404).
//  2. Build an Executable; the providers fill its context registry.  A
//     route parameter that does not resolve to its type → 404.
//  3. Page access conditions (fail → 403).
//  4. Variant selection in weight order (none → 404).
//  5. Build the variant and render it through the page layout.
//
// Notes
// -----
// • Every outcome is counted in internal/metrics.
// • The layout renders into a buffer, so a template error still yields a
//   clean 500.
// • Oxford commas, two spaces after periods.

package pages

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/metrics"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/provider"
	"github.com/yanizio/pagemanager/internal/routing"
	"github.com/yanizio/pagemanager/internal/store"
	"github.com/yanizio/pagemanager/internal/view"
)

var _ routing.PageHandler = (*Dispatcher)(nil)

// PageSource returns a fresh page per call.  *registry.Registry
// implements it.
type PageSource interface {
	Get(ctx context.Context, id string) (*page.Page, error)
}

// Layouts renders a built page.  *view.Engine implements it.
type Layouts interface {
	RenderToString(p view.Page) (template.HTML, error)
}

// Dispatcher serves matched page requests.
type Dispatcher struct {
	pages     PageSource
	layouts   Layouts
	eval      *condition.Evaluator
	providers []page.Provider
}

// NewDispatcher wires the pipeline.  providers run in the given order.
func NewDispatcher(pages PageSource, layouts Layouts, eval *condition.Evaluator, providers ...page.Provider) *Dispatcher {
	return &Dispatcher{pages: pages, layouts: layouts, eval: eval, providers: providers}
}

// ServePage implements routing.PageHandler.
func (d *Dispatcher) ServePage(w http.ResponseWriter, r *http.Request, pageID string) {
	ctx := r.Context()
	log := zap.L().With(zap.String("page", pageID), zap.String("path", r.URL.Path))

	p, err := d.pages.Get(ctx, pageID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		log.Error("page load failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError)
		return
	case !p.Enabled():
		http.NotFound(w, r)
		return
	}

	exec, err := page.NewExecutable(ctx, p, r, d.eval, d.providers...)
	switch {
	case errors.Is(err, provider.ErrBadParameter):
		log.Debug("route parameter rejected", zap.Error(err))
		http.NotFound(w, r)
		return
	case err != nil:
		log.Error("page contexts failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError)
		return
	}

	if !exec.Access() {
		metrics.AccessDeniedTotal.WithLabelValues(pageID).Inc()
		log.Debug("page access denied")
		httpError(w, http.StatusForbidden)
		return
	}

	v, ok := exec.SelectVariant()
	if !ok {
		metrics.NoVariantTotal.WithLabelValues(pageID).Inc()
		log.Debug("no variant selected")
		http.NotFound(w, r)
		return
	}
	metrics.VariantSelectedTotal.WithLabelValues(pageID, v.UUID()).Inc()
	log.Debug("variant selected", zap.String("variant", v.PluginID()), zap.String("uuid", v.UUID()))

	out, err := v.Build(ctx, exec.Registry(), d.eval.Handler())
	if err != nil {
		if ctx.Err() == nil {
			log.Error("variant build failed", zap.String("uuid", v.UUID()), zap.Error(err))
			httpError(w, http.StatusInternalServerError)
		}
		return
	}

	// Status-only variants have no regions to lay out.
	if out.Regions == nil {
		httpError(w, out.Status)
		return
	}

	html, err := d.layouts.RenderToString(view.Page{
		ID:          pageID,
		Title:       out.Title,
		RegionOrder: out.RegionOrder,
		Regions:     out.Regions,
	})
	if err != nil {
		log.Error("layout render failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(out.Status)
	_, _ = w.Write([]byte(html))
}

func httpError(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}
