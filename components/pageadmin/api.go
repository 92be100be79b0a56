// components/pageadmin/api.go
//
// JSON administration API for pages.
//
// Context
// -------
// Everything an administrator can change on a page goes through here: the
// page itself, its variants, access and selection conditions, blocks,
// region placement, and context assignments.  Every mutation loads a fresh
// page, edits it, and saves it through the registry, which also rebuilds
// the route table.
//
// Admin-time contexts
// -------------------
// The "available" and "assignments" endpoints build an Executable with a
// nil request.  Providers then declare their contexts without values, which
// is all slot matching needs.
//
// Error mapping
// -------------
//   - unknown page, variant, condition, or block  → 404
//   - unknown plugin id or malformed payload      → 422
//   - machine name already taken                  → 409
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package pageadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/routing"
	"github.com/yanizio/pagemanager/internal/store"
	"github.com/yanizio/pagemanager/internal/variant"
)

// Pages is the persistence the API needs.  *registry.Registry implements it.
type Pages interface {
	Get(ctx context.Context, id string) (*page.Page, error)
	List() []page.Config
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, p *page.Page) error
	Delete(ctx context.Context, id string) error
	Plugins() page.Plugins
}

// API serves the admin endpoints.
type API struct {
	pages      Pages
	eval       *condition.Evaluator
	providers  []page.Provider
	conditions *plugin.Manager
	blocks     *plugin.Manager
	validate   *validator.Validate
}

// NewAPI wires the API.  providers must be the same list the public
// dispatcher uses, so the admin sees the contexts a request will have.
func NewAPI(pages Pages, eval *condition.Evaluator, conditions, blocks *plugin.Manager, providers ...page.Provider) *API {
	return &API{
		pages:      pages,
		eval:       eval,
		providers:  providers,
		conditions: conditions,
		blocks:     blocks,
		validate:   validator.New(),
	}
}

// Routes returns the API router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", a.list)
	r.Post("/", a.create)
	r.Get("/exists/{id}", a.exists)

	r.Route("/{page}", func(r chi.Router) {
		r.Get("/", a.get)
		r.Put("/", a.update)
		r.Delete("/", a.remove)
		r.Post("/{op}", a.operation)

		r.Post("/access", a.addAccess)
		r.Delete("/access/{condition}", a.removeAccess)

		r.Get("/available/conditions", a.availableConditions)
		r.Get("/available/blocks", a.availableBlocks)

		r.Post("/variants", a.addVariant)
		r.Route("/variants/{variant}", func(r chi.Router) {
			r.Delete("/", a.removeVariant)
			r.Put("/regions", a.setRegions)
			r.Post("/selection", a.addSelection)
			r.Delete("/selection/{condition}", a.removeSelection)
			r.Post("/blocks", a.addBlock)
			r.Delete("/blocks/{block}", a.removeBlock)
			r.Get("/blocks/{block}/assignments", a.assignmentOptions)
			r.Put("/blocks/{block}/assignments", a.setAssignments)
		})
	})
	return r
}

/*──────────────────────────── errors ──────────────────────────────────────*/

// errInvalid marks a payload the API refuses to store.
var errInvalid = errors.New("invalid request")

// errConflict marks a machine name that is already taken.
var errConflict = errors.New("page id already exists")

func status(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, plugin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errConflict):
		return http.StatusConflict
	case errors.Is(err, plugin.ErrUnknownPlugin), errors.Is(err, errInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := status(err)
	if code == http.StatusInternalServerError {
		zap.L().Error("page admin", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, code, map[string]string{"error": http.StatusText(code)})
		return
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// edit loads the page named in the URL, applies fn, and saves it.  fn's
// result is written as JSON with code.
func (a *API) edit(w http.ResponseWriter, r *http.Request, code int, fn func(p *page.Page) (any, error)) {
	p, err := a.pages.Get(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := fn(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.pages.Save(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, code, out)
}

// editVariant is edit narrowed to the variant named in the URL.
func (a *API) editVariant(w http.ResponseWriter, r *http.Request, code int, fn func(v variant.Variant) (any, error)) {
	a.edit(w, r, code, func(p *page.Page) (any, error) {
		v, err := p.Variant(chi.URLParam(r, "variant"))
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}

// editBlocks is editVariant narrowed to block_display variants.
func (a *API) editBlocks(w http.ResponseWriter, r *http.Request, code int, fn func(v *variant.BlockDisplay) (any, error)) {
	a.editVariant(w, r, code, func(v variant.Variant) (any, error) {
		bd, ok := v.(*variant.BlockDisplay)
		if !ok {
			return nil, fmt.Errorf("%w: variant %s does not hold blocks", errInvalid, v.UUID())
		}
		return fn(bd)
	})
}

// pluginConfig decodes a plugin instance and checks its id against m.
func pluginConfig(r *http.Request, m *plugin.Manager) (plugin.Config, error) {
	var cfg plugin.Config
	if err := decode(r, &cfg); err != nil {
		return cfg, err
	}
	if _, ok := m.Definition(cfg.ID); !ok {
		return cfg, fmt.Errorf("%w: %s %q", plugin.ErrUnknownPlugin, m.Kind(), cfg.ID)
	}
	return cfg, nil
}

// adminExecutable collects the page's contexts without a request.
func (a *API) adminExecutable(ctx context.Context, p *page.Page) (*page.Executable, error) {
	return page.NewExecutable(ctx, p, nil, a.eval, a.providers...)
}

type created struct {
	UUID string `json:"uuid"`
}

/*──────────────────────────── pages ───────────────────────────────────────*/

type createRequest struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Path       string            `json:"path"`
	Status     *bool             `json:"status"`
	Parameters map[string]string `json:"parameters"`
	Variants   []plugin.Config   `json:"variants"`
	Access     []plugin.Config   `json:"access"`
}

func (a *API) list(w http.ResponseWriter, _ *http.Request) {
	cfgs := a.pages.List()
	if cfgs == nil {
		cfgs = []page.Config{}
	}
	writeJSON(w, http.StatusOK, cfgs)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	cfg := page.Config{
		ID:         req.ID,
		Label:      req.Label,
		Path:       req.Path,
		Status:     req.Status == nil || *req.Status,
		Parameters: req.Parameters,
		Variants:   req.Variants,
		Access:     req.Access,
	}
	if cfg.ID == "" {
		cfg.ID = routing.MakeMachineName(cfg.Label)
	}
	if err := a.validate.Struct(cfg); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errInvalid, err))
		return
	}
	if !routing.ValidMachineName(cfg.ID) {
		writeError(w, r, fmt.Errorf("%w: machine name %q", errInvalid, cfg.ID))
		return
	}

	taken, err := a.pages.Exists(r.Context(), cfg.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if taken {
		writeError(w, r, fmt.Errorf("%w: %s", errConflict, cfg.ID))
		return
	}

	p := page.New(cfg, a.pages.Plugins())
	if err := a.pages.Save(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Config())
}

func (a *API) exists(w http.ResponseWriter, r *http.Request) {
	ok, err := a.pages.Exists(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	p, err := a.pages.Get(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Config())
}

type updateRequest struct {
	Label      *string           `json:"label"`
	Path       *string           `json:"path"`
	Parameters map[string]string `json:"parameters"`
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a.edit(w, r, http.StatusOK, func(p *page.Page) (any, error) {
		if req.Label != nil {
			if *req.Label == "" {
				return nil, fmt.Errorf("%w: empty label", errInvalid)
			}
			p.SetLabel(*req.Label)
		}
		if req.Path != nil {
			if *req.Path == "" {
				return nil, fmt.Errorf("%w: empty path", errInvalid)
			}
			p.SetPath(*req.Path)
		}
		for name, typeID := range req.Parameters {
			p.SetParameterType(name, typeID)
		}
		return p.Config(), nil
	})
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	if err := a.pages.Delete(r.Context(), chi.URLParam(r, "page")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// operation enables or disables a page.
func (a *API) operation(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")
	a.edit(w, r, http.StatusOK, func(p *page.Page) (any, error) {
		switch op {
		case "enable":
			p.Enable()
		case "disable":
			p.Disable()
		default:
			return nil, fmt.Errorf("%w: unknown operation %q", errInvalid, op)
		}
		return p.Config(), nil
	})
}

/*──────────────────────────── access conditions ───────────────────────────*/

// freeUUID refuses a client-chosen uuid that the bag already holds, so an
// add never overwrites an existing instance.
func freeUUID(bag interface{ Has(string) bool }, id string) error {
	if id != "" && bag.Has(id) {
		return fmt.Errorf("%w: uuid %q already in use", errInvalid, id)
	}
	return nil
}

func (a *API) addAccess(w http.ResponseWriter, r *http.Request) {
	cfg, err := pluginConfig(r, a.conditions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.edit(w, r, http.StatusCreated, func(p *page.Page) (any, error) {
		if err := freeUUID(p.AccessConditions(), cfg.UUID); err != nil {
			return nil, err
		}
		return created{UUID: p.AddAccessCondition(cfg)}, nil
	})
}

func (a *API) removeAccess(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, http.StatusNoContent, func(p *page.Page) (any, error) {
		return nil, p.RemoveAccessCondition(chi.URLParam(r, "condition"))
	})
}

/*──────────────────────────── variants ────────────────────────────────────*/

func (a *API) addVariant(w http.ResponseWriter, r *http.Request) {
	cfg, err := pluginConfig(r, a.pages.Plugins().Variants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.edit(w, r, http.StatusCreated, func(p *page.Page) (any, error) {
		if err := freeUUID(p.Variants(), cfg.UUID); err != nil {
			return nil, err
		}
		return created{UUID: p.AddVariant(cfg)}, nil
	})
}

func (a *API) removeVariant(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, http.StatusNoContent, func(p *page.Page) (any, error) {
		return nil, p.RemoveVariant(chi.URLParam(r, "variant"))
	})
}

func (a *API) addSelection(w http.ResponseWriter, r *http.Request) {
	cfg, err := pluginConfig(r, a.conditions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.editVariant(w, r, http.StatusCreated, func(v variant.Variant) (any, error) {
		if err := freeUUID(v.SelectionConditions(), cfg.UUID); err != nil {
			return nil, err
		}
		return created{UUID: v.AddSelectionCondition(cfg)}, nil
	})
}

func (a *API) removeSelection(w http.ResponseWriter, r *http.Request) {
	a.editVariant(w, r, http.StatusNoContent, func(v variant.Variant) (any, error) {
		return nil, v.RemoveSelectionCondition(chi.URLParam(r, "condition"))
	})
}

/*──────────────────────────── blocks and regions ──────────────────────────*/

func (a *API) addBlock(w http.ResponseWriter, r *http.Request) {
	cfg, err := pluginConfig(r, a.blocks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.editBlocks(w, r, http.StatusCreated, func(v *variant.BlockDisplay) (any, error) {
		if err := freeUUID(v.Blocks(), cfg.UUID); err != nil {
			return nil, err
		}
		return created{UUID: v.AddBlock(cfg)}, nil
	})
}

func (a *API) removeBlock(w http.ResponseWriter, r *http.Request) {
	a.editBlocks(w, r, http.StatusNoContent, func(v *variant.BlockDisplay) (any, error) {
		return nil, v.RemoveBlock(chi.URLParam(r, "block"))
	})
}

// setRegions applies a block uuid → region map in one save.  Every uuid
// must exist; regions are stored as given and unknown ones are dropped at
// render time.
func (a *API) setRegions(w http.ResponseWriter, r *http.Request) {
	var regions map[string]string
	if err := decode(r, &regions); err != nil {
		writeError(w, r, err)
		return
	}
	a.editBlocks(w, r, http.StatusOK, func(v *variant.BlockDisplay) (any, error) {
		for id, region := range regions {
			if err := v.SetRegionAssignment(id, region); err != nil {
				return nil, err
			}
		}
		return v.Configuration().Blocks, nil
	})
}

// setAssignments stores the slot → context name map of one block.  Every
// slot must be declared by the block and every context must be a valid
// option for it.
func (a *API) setAssignments(w http.ResponseWriter, r *http.Request) {
	var assign map[string]string
	if err := decode(r, &assign); err != nil {
		writeError(w, r, err)
		return
	}
	a.edit(w, r, http.StatusOK, func(p *page.Page) (any, error) {
		v, err := p.Variant(chi.URLParam(r, "variant"))
		if err != nil {
			return nil, err
		}
		bd, ok := v.(*variant.BlockDisplay)
		if !ok {
			return nil, fmt.Errorf("%w: variant %s does not hold blocks", errInvalid, v.UUID())
		}
		id := chi.URLParam(r, "block")
		b, err := bd.Block(id)
		if err != nil {
			return nil, err
		}

		exec, err := a.adminExecutable(r.Context(), p)
		if err != nil {
			return nil, err
		}
		options := a.eval.Handler().AssignmentOptions(exec.Registry(), b.ContextDefinitions())
		for slot, name := range assign {
			opts, declared := options[slot]
			if !declared {
				return nil, fmt.Errorf("%w: block has no slot %q", errInvalid, slot)
			}
			if !hasOption(opts, name) {
				return nil, fmt.Errorf("%w: context %q cannot fill slot %q", errInvalid, name, slot)
			}
		}

		cfg := b.Configuration()
		cfg.ContextAssignments = assign
		if err := bd.Blocks().Update(id, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	})
}

func hasOption(opts []pagectx.Option, name string) bool {
	for _, o := range opts {
		if o.Name == name {
			return true
		}
	}
	return false
}

/*──────────────────────────── admin-time listings ─────────────────────────*/

func (a *API) availableConditions(w http.ResponseWriter, r *http.Request) {
	p, exec, ok := a.loadAdmin(w, r)
	if !ok {
		return
	}
	defs := a.conditions.DefinitionsForContexts(a.eval.Handler(), exec.Contexts())
	zap.L().Debug("available conditions", zap.String("page", p.ID()), zap.Int("count", len(defs)))
	writeJSON(w, http.StatusOK, defs)
}

// availableBlocks groups the addable blocks by category.
func (a *API) availableBlocks(w http.ResponseWriter, r *http.Request) {
	_, exec, ok := a.loadAdmin(w, r)
	if !ok {
		return
	}
	groups := make(map[string][]plugin.Definition)
	for _, d := range a.blocks.DefinitionsForContexts(a.eval.Handler(), exec.Contexts()) {
		groups[d.Category] = append(groups[d.Category], d)
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) assignmentOptions(w http.ResponseWriter, r *http.Request) {
	p, exec, ok := a.loadAdmin(w, r)
	if !ok {
		return
	}
	v, err := p.Variant(chi.URLParam(r, "variant"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	bd, isBlocks := v.(*variant.BlockDisplay)
	if !isBlocks {
		writeError(w, r, fmt.Errorf("%w: variant %s does not hold blocks", errInvalid, v.UUID()))
		return
	}
	b, err := bd.Block(chi.URLParam(r, "block"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.eval.Handler().AssignmentOptions(exec.Registry(), b.ContextDefinitions()))
}

func (a *API) loadAdmin(w http.ResponseWriter, r *http.Request) (*page.Page, *page.Executable, bool) {
	p, err := a.pages.Get(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	exec, err := a.adminExecutable(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return p, exec, true
}
