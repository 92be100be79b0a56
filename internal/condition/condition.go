// internal/condition/condition.go
//
// Access and selection conditions.
//
// Context
// -------
// A Condition is a context-aware plugin that answers "may this page (or
// this variant) serve the current request?".  Pages own a bag of access
// conditions; every variant owns a bag of selection conditions.  Both are
// evaluated the same way:
//
//  1. The Evaluator resolves each declared slot to a context value using
//     the instance's stored assignments (pagectx.Handler.ResolveValues).
//  2. An unsatisfiable slot makes the condition fail.  It is not an error.
//  3. Evaluate runs with the resolved values; the `negate` flag flips the
//     answer.
//
// A set of conditions passes when every member passes.  The empty set
// always passes.
//
// Notes
// -----
// • Evaluation errors from a plugin are logged and count as "fail".
// • Oxford commas, two spaces after periods.
package condition

import (
	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
)

// Condition is implemented by every condition plugin.
type Condition interface {
	plugin.ContextAware
	Evaluate(values map[string]any) (bool, error)
}

// Bag is the ordered condition collection owned by pages and variants.
type Bag = plugin.Bag[Condition]

// NewBag restores a condition Bag from configuration.
func NewBag(m *plugin.Manager, uuids plugin.UUIDGenerator, configs []plugin.Config) *Bag {
	return plugin.NewBag(plugin.Instantiator[Condition](m), uuids, configs)
}

// Evaluator checks conditions against a request's context registry.
type Evaluator struct {
	handler *pagectx.Handler
}

// NewEvaluator returns an Evaluator that resolves slots with h.
func NewEvaluator(h *pagectx.Handler) *Evaluator {
	return &Evaluator{handler: h}
}

// Handler returns the context handler used for slot resolution.
func (e *Evaluator) Handler() *pagectx.Handler { return e.handler }

// Check evaluates one condition.
func (e *Evaluator) Check(c Condition, reg *pagectx.Registry) bool {
	cfg := c.Configuration()
	values, err := e.handler.ResolveValues(reg.Contexts(), c.ContextDefinitions(), cfg.ContextAssignments)
	if err != nil {
		zap.L().Debug("condition unsatisfied",
			zap.String("plugin", c.PluginID()),
			zap.String("uuid", c.UUID()),
			zap.Error(err))
		return false
	}

	ok, err := c.Evaluate(values)
	if err != nil {
		zap.L().Warn("condition evaluate failed",
			zap.String("plugin", c.PluginID()),
			zap.String("uuid", c.UUID()),
			zap.Error(err))
		return false
	}
	if cfg.Negate {
		return !ok
	}
	return ok
}

// All reports whether every condition passes.  It stops at the first
// failure.
func (e *Evaluator) All(conds []Condition, reg *pagectx.Registry) bool {
	for _, c := range conds {
		if !e.Check(c, reg) {
			return false
		}
	}
	return true
}

// BagPasses evaluates every member of b.  A member that cannot be built
// fails the set.
func (e *Evaluator) BagPasses(b *Bag, reg *pagectx.Registry) bool {
	conds, err := b.All()
	if err != nil {
		zap.L().Warn("condition bag instantiate failed", zap.Error(err))
		return false
	}
	return e.All(conds, reg)
}
