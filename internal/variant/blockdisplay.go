// internal/variant/blockdisplay.go
//
// block_display: a variant that renders blocks into named regions.
//
// Context
// -------
// The variant owns a block bag.  Each block's configuration records the
// region it belongs to.  The set of known regions is fixed per variant:
// `settings.regions` when present, otherwise the regions passed in Deps
// (from `pages.regions` in config), otherwise DefaultRegions.
//
// Region bookkeeping
// ------------------
//   - RegionAssignments returns every known region, each with its blocks in
//     bag weight order.  A block whose region is not known is dropped from
//     every list.  It stays in the bag and remains reachable by uuid.
//   - SetRegionAssignment writes the region straight into the block's
//     configuration.  The name is not checked at write time.
//
// Notes
// -----
// • Blocks whose context slots cannot be bound at render time are skipped
//   and logged at DEBUG; a block Build error is logged at WARN and skipped.
// • Oxford commas, two spaces after periods.
package variant

import (
	"context"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/block"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
)

// BlockDisplay lays blocks out by region.
type BlockDisplay struct {
	selectable
	blocks *block.Bag
}

func newBlockDisplay(cfg plugin.Config, def plugin.Definition, deps Deps) *BlockDisplay {
	v := &BlockDisplay{selectable: selectable{deps: deps}}
	v.Base = plugin.NewBase(plugin.Config{}, def)
	v.SetConfiguration(cfg)
	return v
}

// SetConfiguration replaces plugin state and rebuilds both nested bags.
func (v *BlockDisplay) SetConfiguration(cfg plugin.Config) {
	blocks := cfg.Blocks
	cfg.Blocks = nil
	v.selectable.SetConfiguration(cfg)
	v.blocks = block.NewBag(v.deps.Blocks, v.deps.UUIDs, blocks)
	v.blocks.Sort()
}

// Configuration includes the live block and selection condition configs.
func (v *BlockDisplay) Configuration() plugin.Config {
	cfg := v.selectable.Configuration()
	cfg.Blocks = v.blocks.Configurations()
	return cfg
}

// Blocks exposes the block bag.
func (v *BlockDisplay) Blocks() *block.Bag { return v.blocks }

// RegionNames returns the known regions in display order.
func (v *BlockDisplay) RegionNames() []string {
	if names := v.Config().Strings("regions"); len(names) > 0 {
		return names
	}
	return v.deps.Regions
}

/*──────────────────────────── block CRUD ──────────────────────────────────*/

// AddBlock stores cfg and returns its uuid.  The bag is re-sorted.
func (v *BlockDisplay) AddBlock(cfg plugin.Config) string {
	id := v.blocks.AddInstanceID(cfg.UUID, cfg)
	v.blocks.Sort()
	return id
}

// Block returns the block with the given uuid.
func (v *BlockDisplay) Block(uuid string) (block.Block, error) {
	return v.blocks.Get(uuid)
}

// RemoveBlock deletes a block.  Missing uuids yield plugin.ErrNotFound.
func (v *BlockDisplay) RemoveBlock(uuid string) error {
	return v.blocks.RemoveInstanceID(uuid)
}

// BlockCount returns the number of configured blocks.
func (v *BlockDisplay) BlockCount() int { return v.blocks.Len() }

/*──────────────────────────── regions ─────────────────────────────────────*/

// RegionAssignment reads a block's region from its configuration.
func (v *BlockDisplay) RegionAssignment(uuid string) (string, error) {
	b, err := v.blocks.Get(uuid)
	if err != nil {
		return "", err
	}
	return b.Configuration().Region, nil
}

// SetRegionAssignment records region on one block.
func (v *BlockDisplay) SetRegionAssignment(uuid, region string) error {
	b, err := v.blocks.Get(uuid)
	if err != nil {
		return err
	}
	cfg := b.Configuration()
	cfg.Region = region
	b.SetConfiguration(cfg)
	return nil
}

// RegionAssignments groups the bag's blocks by known region.  Blocks
// whose plugin cannot be instantiated are left out.
func (v *BlockDisplay) RegionAssignments() map[string][]block.Block {
	names := v.RegionNames()
	out := make(map[string][]block.Block, len(names))
	for _, n := range names {
		out[n] = []block.Block{}
	}

	v.blocks.Sort()
	for _, id := range v.blocks.UUIDs() {
		b, err := v.blocks.Get(id)
		if err != nil {
			zap.L().Warn("block skipped", zap.String("uuid", id), zap.Error(err))
			continue
		}
		region := b.Configuration().Region
		if list, ok := out[region]; ok {
			out[region] = append(list, b)
		}
	}
	return out
}

/*──────────────────────────── render ──────────────────────────────────────*/

// Build renders every placed block whose context slots can be bound.
func (v *BlockDisplay) Build(ctx context.Context, reg *pagectx.Registry, h *pagectx.Handler) (*Output, error) {
	regions := v.RegionAssignments()

	out := &Output{
		Status:      http.StatusOK,
		Title:       v.Config().String("page_title", v.Label()),
		RegionOrder: v.RegionNames(),
		Regions:     make(map[string][]template.HTML, len(regions)),
	}
	available := reg.Contexts()

	for _, name := range out.RegionOrder {
		for _, b := range regions[name] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			html, ok := v.renderBlock(b, available, h)
			if ok {
				out.Regions[name] = append(out.Regions[name], html)
			}
		}
	}
	return out, nil
}

func (v *BlockDisplay) renderBlock(b block.Block, available map[string]*pagectx.Context, h *pagectx.Handler) (template.HTML, bool) {
	cfg := b.Configuration()
	values, err := h.ResolveValues(available, b.ContextDefinitions(), cfg.ContextAssignments)
	if err != nil {
		zap.L().Debug("block skipped",
			zap.String("block", b.PluginID()),
			zap.String("uuid", b.UUID()),
			zap.Error(err))
		return "", false
	}

	html, err := b.Build(values)
	if err != nil {
		zap.L().Warn("block build failed",
			zap.String("block", b.PluginID()),
			zap.String("uuid", b.UUID()),
			zap.Error(err))
		return "", false
	}
	return html, true
}
