// internal/routing/slug.go
//
// Machine-name and path-pattern helpers.
//
// • MakeMachineName(label) ─ converts a human label into a page id
//   restricted to ASCII a-z, 0-9, and “_”.
// • ValidMachineName(id) ─ reports whether id already is one.
// • NormalizePath(p) ─ guarantees exactly one leading slash, no trailing
//   slash, and no duplicate separators.
// • ParamNames(pattern) ─ lists the `{name}` placeholders in a page path.
//
// Rules (MakeMachineName)
// -----------------------
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one “_”.  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading / trailing “_”.
// 4. If the result is empty, return "page".
//
// Notes
// -----
// • Machine names are max 64 bytes, matching the `page.id` column.

package routing

import (
	"strings"
)

// MaxMachineName is the longest id a page may carry.
const MaxMachineName = 64

// MakeMachineName converts label → lower_snake ASCII.
func MakeMachineName(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	lastWasSep := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSep = false
		default:
			if !lastWasSep {
				b.WriteRune('_')
				lastWasSep = true
			}
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "page"
	}
	if len(name) > MaxMachineName {
		name = strings.TrimRight(name[:MaxMachineName], "_")
	}
	return name
}

// ValidMachineName reports whether id is non-empty, short enough, and made
// of a-z, 0-9, and “_” only.
func ValidMachineName(id string) bool {
	if id == "" || len(id) > MaxMachineName {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// NormalizePath returns p with exactly one leading slash and no empty
// segments.  The root path is "/".
func NormalizePath(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// ParamNames returns the placeholder names of pattern in order of
// appearance.  "/node/{node}/rev/{rev}" → ["node", "rev"].
func ParamNames(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
			name := seg[1 : len(seg)-1]
			// chi allows "{id:[0-9]+}"; the name stops at the colon.
			name, _, _ = strings.Cut(name, ":")
			names = append(names, name)
		}
	}
	return names
}
