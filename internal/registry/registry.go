// internal/registry/registry.go
//
// Page registry: cached page configurations plus route rebuilds.
//
// Context
// -------
// Every request needs its page's configuration, and the store may be a
// database.  The registry keeps configurations in a sync.Map and loads
// misses through singleflight, so a burst of requests for a cold page costs
// one query.  Each caller gets a fresh *page.Page built from the cached
// config; plugin instance caches are therefore never shared between
// requests.
//
// Workflow
// --------
//  1. Boot calls LoadAll, which warms the cache and rebuilds routes.
//  2. Get serves from cache; entries older than the TTL reload lazily.
//  3. Save and Delete write through to the store, update the cache, and
//     rebuild routes so path changes take effect immediately.
//  4. OnChange listeners hear the id of every saved or deleted page (the
//     pages component drops the page's parsed layout).
//
// Notes
// -----
// • A TTL of zero disables expiry.
// • Oxford commas, two spaces after periods.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/pagemanager/internal/metrics"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/routing"
	"github.com/yanizio/pagemanager/internal/store"
)

// RouteSink receives the enabled pages' routes after every change.
// *routing.Table implements it.
type RouteSink interface {
	Rebuild(routes []routing.Route) int
}

type entry struct {
	cfg      page.Config
	loadedAt time.Time
}

// Registry caches page configurations.
type Registry struct {
	store   store.Store
	plugins page.Plugins
	routes  RouteSink
	ttl     time.Duration
	changed []func(id string)

	sfg singleflight.Group
	m   sync.Map // id → *entry
}

// New returns a Registry.  routes may be nil.
func New(s store.Store, plugins page.Plugins, routes RouteSink, ttl time.Duration) *Registry {
	return &Registry{store: s, plugins: plugins, routes: routes, ttl: ttl}
}

// Attach sets the route sink and pushes the current routes to it.  Call it
// during boot, before the server starts.
func (r *Registry) Attach(routes RouteSink) {
	r.routes = routes
	r.refresh()
}

// OnChange registers fn to run after a page is saved or deleted.  Register
// listeners during boot only.
func (r *Registry) OnChange(fn func(id string)) {
	r.changed = append(r.changed, fn)
}

// Plugins returns the plugin managers pages are built with.
func (r *Registry) Plugins() page.Plugins { return r.plugins }

// LoadAll replaces the cache with every stored page and rebuilds routes.
func (r *Registry) LoadAll(ctx context.Context) error {
	cfgs, err := r.store.All(ctx)
	if err != nil {
		metrics.PageLoadErrorsTotal.Inc()
		return err
	}

	r.m.Range(func(k, _ any) bool {
		r.m.Delete(k)
		return true
	})
	now := time.Now()
	for _, cfg := range cfgs {
		r.m.Store(cfg.ID, &entry{cfg: cfg, loadedAt: now})
	}
	metrics.PageLoadTotal.Add(float64(len(cfgs)))
	r.refresh()

	zap.L().Info("pages loaded", zap.Int("count", len(cfgs)))
	return nil
}

// Get returns a fresh page built from the cached configuration.
func (r *Registry) Get(ctx context.Context, id string) (*page.Page, error) {
	cfg, err := r.Config(ctx, id)
	if err != nil {
		return nil, err
	}
	return page.New(cfg, r.plugins), nil
}

// Config returns the cached configuration of id, loading it on demand.
func (r *Registry) Config(ctx context.Context, id string) (page.Config, error) {
	if cfg, ok := r.cached(id); ok {
		return cfg, nil
	}

	v, err, _ := r.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if cfg, ok := r.cached(id); ok {
			return cfg, nil
		}
		cfg, err := r.store.Load(ctx, id)
		if err != nil {
			metrics.PageLoadErrorsTotal.Inc()
			return nil, err
		}
		r.m.Store(id, &entry{cfg: cfg, loadedAt: time.Now()})
		metrics.PageLoadTotal.Inc()
		r.updateGauge()
		return cfg, nil
	})
	if err != nil {
		return page.Config{}, err
	}
	return v.(page.Config), nil
}

func (r *Registry) cached(id string) (page.Config, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return page.Config{}, false
	}
	ent := v.(*entry)
	if r.ttl > 0 && time.Since(ent.loadedAt) > r.ttl {
		return page.Config{}, false
	}
	return ent.cfg, true
}

// List returns every cached page configuration ordered by id.
func (r *Registry) List() []page.Config {
	var out []page.Config
	r.m.Range(func(_, v any) bool {
		out = append(out, v.(*entry).cfg)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether id is taken in the store.
func (r *Registry) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.Exists(ctx, id)
}

// Save persists p, refreshes the cache, and rebuilds routes.
func (r *Registry) Save(ctx context.Context, p *page.Page) error {
	cfg := p.Config()
	if err := r.store.Save(ctx, cfg); err != nil {
		return err
	}
	r.m.Store(cfg.ID, &entry{cfg: cfg, loadedAt: time.Now()})
	r.refresh()
	r.notify(cfg.ID)

	zap.L().Info("page saved", zap.String("page", cfg.ID), zap.Bool("enabled", cfg.Status))
	return nil
}

// Delete removes a page everywhere.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.m.Delete(id)
	r.refresh()
	r.notify(id)

	zap.L().Info("page deleted", zap.String("page", id))
	return nil
}

// Routes returns the enabled pages' routes ordered by id.
func (r *Registry) Routes() []routing.Route {
	var routes []routing.Route
	for _, cfg := range r.List() {
		if cfg.Status {
			routes = append(routes, routing.Route{Pattern: cfg.Path, PageID: cfg.ID})
		}
	}
	return routes
}

func (r *Registry) refresh() {
	r.updateGauge()
	if r.routes != nil {
		r.routes.Rebuild(r.Routes())
	}
}

func (r *Registry) notify(id string) {
	for _, fn := range r.changed {
		fn(id)
	}
}

func (r *Registry) updateGauge() {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	metrics.PagesLoaded.Set(float64(n))
}
