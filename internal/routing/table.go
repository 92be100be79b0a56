// internal/routing/table.go
//
// Swappable page route table.
//
// Context
// -------
// Every enabled page answers at its own path pattern ("/promo",
// "/node/{node}").  Patterns change whenever an administrator saves a page,
// so the table cannot be a router built once at boot.  Instead the table
// keeps an immutable chi.Mux behind an atomic pointer and builds a fresh
// one on every Rebuild.  In-flight requests finish on the mux they started
// with.
//
// Workflow
// --------
//  1. The composition root creates the table with the page dispatcher.
//  2. Boot and every page save call Rebuild with the enabled pages' routes.
//  3. ServeHTTP routes through the current mux; the dispatcher receives
//     the matched page id and reads `{param}` values via chi.URLParam.
//
// Notes
// -----
// • A pattern chi refuses is logged and skipped; the other routes still
//   load.
// • Oxford commas, two spaces after periods.

package routing

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Route binds a path pattern to a page id.
type Route struct {
	Pattern string
	PageID  string
}

// PageHandler serves a request for a matched page.
type PageHandler interface {
	ServePage(w http.ResponseWriter, r *http.Request, pageID string)
}

// Table is an http.Handler whose routes can be replaced at runtime.
type Table struct {
	pages   PageHandler
	mux     atomic.Pointer[chi.Mux]
	version atomic.Int64
}

// NewTable returns an empty table.  Every path 404s until Rebuild.
func NewTable(pages PageHandler) *Table {
	t := &Table{pages: pages}
	t.mux.Store(chi.NewRouter())
	return t
}

// Rebuild swaps in a router serving routes and returns the number that
// loaded.
func (t *Table) Rebuild(routes []Route) int {
	mux := chi.NewRouter()
	loaded := 0
	for _, rt := range routes {
		if err := t.mount(mux, rt); err != nil {
			zap.L().Warn("page route skipped",
				zap.String("page", rt.PageID),
				zap.String("pattern", rt.Pattern),
				zap.Error(err))
			continue
		}
		loaded++
	}
	t.mux.Store(mux)
	v := t.version.Add(1)

	zap.L().Debug("page routes rebuilt",
		zap.Int("routes", loaded),
		zap.Int64("version", v))
	return loaded
}

func (t *Table) mount(mux *chi.Mux, rt Route) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	id := rt.PageID
	mux.Method(http.MethodGet, NormalizePath(rt.Pattern), http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			t.pages.ServePage(w, r, id)
		}))
	return nil
}

// Version counts rebuilds since start-up.
func (t *Table) Version() int64 { return t.version.Load() }

// ServeHTTP implements http.Handler.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.Load().ServeHTTP(w, r)
}
