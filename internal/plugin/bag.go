// internal/plugin/bag.go
//
// Ordered, lazily instantiated plugin collection.
//
// Context
// -------
// A Bag holds the plugin instances owned by one page or variant, keyed by
// instance UUID.  It is restored from the ordered Config list persisted with
// the owner and builds each instance on first access only.  Once built, an
// instance is cached for the lifetime of the Bag; changing its stored
// configuration requires Update, which drops the cached instance.
//
// Ordering
// --------
// Iteration follows the current sequence, which starts as declaration
// order.  Sort reorders by ascending weight with a stable sort, so equal
// weights keep their previous relative order and a second Sort is a no-op.
// Bulk mutation must be followed by an explicit Sort.
//
// Notes
// -----
// • Not safe for concurrent use.  A Bag lives inside one request (or one
//   admin edit) and is discarded with it.
// • Oxford commas, two spaces after periods.
package plugin

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned for an unknown instance UUID.
var ErrNotFound = errors.New("plugin instance not found")

// Bag is the ordered collection.  T is the plugin kind, e.g. a Condition.
type Bag[T Plugin] struct {
	create func(Config) (T, error)
	uuids  UUIDGenerator

	order     []string
	configs   map[string]Config
	instances map[string]T
}

// NewBag restores a Bag from configs.  Records without a UUID receive one.
// A duplicate UUID replaces the earlier record in place.
func NewBag[T Plugin](create func(Config) (T, error), uuids UUIDGenerator, configs []Config) *Bag[T] {
	if uuids == nil {
		uuids = RandomUUID
	}
	b := &Bag[T]{
		create:    create,
		uuids:     uuids,
		configs:   make(map[string]Config, len(configs)),
		instances: make(map[string]T, len(configs)),
	}
	for _, c := range configs {
		b.put(c)
	}
	return b
}

func (b *Bag[T]) put(c Config) string {
	c = c.Clone()
	if c.UUID == "" {
		c.UUID = b.uuids.Generate()
	}
	if _, exists := b.configs[c.UUID]; !exists {
		b.order = append(b.order, c.UUID)
	}
	b.configs[c.UUID] = c
	delete(b.instances, c.UUID)
	return c.UUID
}

// AddInstanceID stores cfg under id.  An empty id gets a fresh UUID.  The
// id actually used is returned.
func (b *Bag[T]) AddInstanceID(id string, cfg Config) string {
	cfg.UUID = id
	return b.put(cfg)
}

// Get returns the instance for id, building it on first access.
func (b *Bag[T]) Get(id string) (T, error) {
	if inst, ok := b.instances[id]; ok {
		return inst, nil
	}
	var zero T
	cfg, ok := b.configs[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	inst, err := b.create(cfg.Clone())
	if err != nil {
		return zero, fmt.Errorf("instantiate %s (%s): %w", cfg.ID, id, err)
	}
	b.instances[id] = inst
	return inst, nil
}

// Has reports whether id is present.
func (b *Bag[T]) Has(id string) bool {
	_, ok := b.configs[id]
	return ok
}

// RemoveInstanceID drops id.  Removing an unknown id is an error because
// callers always remove ids they obtained from the Bag.
func (b *Bag[T]) RemoveInstanceID(id string) error {
	if _, ok := b.configs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(b.configs, id)
	delete(b.instances, id)
	for i, u := range b.order {
		if u == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update replaces the stored configuration for id and discards the cached
// instance.  The UUID inside cfg is forced to id.
func (b *Bag[T]) Update(id string, cfg Config) error {
	if _, ok := b.configs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cfg.UUID = id
	b.put(cfg)
	return nil
}

// Sort orders the sequence by ascending weight, stable for ties.  Built
// instances report their live weight; others use stored configuration.
func (b *Bag[T]) Sort() {
	weights := make(map[string]int, len(b.order))
	for _, id := range b.order {
		weights[id] = b.weight(id)
	}
	sort.SliceStable(b.order, func(i, j int) bool {
		return weights[b.order[i]] < weights[b.order[j]]
	})
}

func (b *Bag[T]) weight(id string) int {
	if inst, ok := b.instances[id]; ok {
		return inst.Weight()
	}
	return b.configs[id].Weight
}

// UUIDs returns ids in iteration order.
func (b *Bag[T]) UUIDs() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Len reports the number of members.
func (b *Bag[T]) Len() int { return len(b.order) }

// All returns every instance in iteration order, building as needed.  The
// first instantiation error aborts.
func (b *Bag[T]) All() ([]T, error) {
	out := make([]T, 0, len(b.order))
	for _, id := range b.order {
		inst, err := b.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Configurations snapshots the Bag for persistence in iteration order.
// Built instances contribute their live configuration.  An empty Bag yields nil.
func (b *Bag[T]) Configurations() []Config {
	if len(b.order) == 0 {
		return nil
	}
	out := make([]Config, 0, len(b.order))
	for _, id := range b.order {
		if inst, ok := b.instances[id]; ok {
			c := inst.Configuration()
			c.UUID = id
			out = append(out, c)
			continue
		}
		out = append(out, b.configs[id].Clone())
	}
	return out
}
