// internal/plugin/config.go
//
// Persisted plugin configuration.
//
// Context
// -------
// Variants, conditions, and blocks all persist as the same record shape
// inside a page's configuration.  `ID` picks the implementation and never
// changes after creation; `UUID` is the stable instance identity across
// edits.  Kind-specific fields are optional and omitted when empty so a
// condition record does not carry an empty block list.
//
// Notes
// -----
// • Tags cover both YAML (file store) and JSON (SQL store, admin API).
// • Clone deep-copies maps and nested slices; Bags hand out clones so a
//   caller can never mutate stored configuration by accident.
package plugin

// Config is one plugin instance record.
type Config struct {
	ID                 string            `yaml:"id"                             json:"id"`
	UUID               string            `yaml:"uuid"                           json:"uuid"`
	Label              string            `yaml:"label,omitempty"                json:"label,omitempty"`
	Weight             int               `yaml:"weight"                         json:"weight"`
	ContextAssignments map[string]string `yaml:"context_assignments,omitempty"  json:"context_assignments,omitempty"`
	Settings           map[string]any    `yaml:"settings,omitempty"             json:"settings,omitempty"`

	// Blocks only.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// Conditions only.
	Negate bool `yaml:"negate,omitempty" json:"negate,omitempty"`

	// Variants only.
	Blocks              []Config `yaml:"blocks,omitempty"               json:"blocks,omitempty"`
	SelectionConditions []Config `yaml:"selection_conditions,omitempty" json:"selection_conditions,omitempty"`
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	if c.ContextAssignments != nil {
		out.ContextAssignments = make(map[string]string, len(c.ContextAssignments))
		for k, v := range c.ContextAssignments {
			out.ContextAssignments[k] = v
		}
	}
	if c.Settings != nil {
		out.Settings = make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			out.Settings[k] = v
		}
	}
	out.Blocks = cloneAll(c.Blocks)
	out.SelectionConditions = cloneAll(c.SelectionConditions)
	return out
}

func cloneAll(in []Config) []Config {
	if in == nil {
		return nil
	}
	out := make([]Config, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// String returns a string setting or def.
func (c Config) String(key, def string) string {
	if s, ok := c.Settings[key].(string); ok {
		return s
	}
	return def
}

// Int returns an integer setting or def.  YAML decodes ints as int, JSON as
// float64; both are accepted.
func (c Config) Int(key string, def int) int {
	switch v := c.Settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Strings returns a string-list setting.  A single string is promoted to a
// one-element list.
func (c Config) Strings(key string) []string {
	switch v := c.Settings[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
