// internal/view/render.go
//
// Page layout engine: template lookup, func-map injection, and an LRU of
// parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write a rendered page to an http.ResponseWriter.
//   - RenderToString – return template.HTML (tests, previews).
//
// Lookup precedence (first hit wins):
//  1. <dir>/pages/<page id>.html
//  2. <dir>/layout.html
//  3. the built-in layout compiled into the binary
//
// The chosen file must define the "layout" template or be the layout
// itself.  execName picks whichever exists.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	_ "embed"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/yanizio/pagemanager/internal/cache"
)

//go:embed templates/layout.html
var builtinLayout string

// Page is the data every layout receives.
type Page struct {
	ID          string
	Title       string
	RegionOrder []string
	Regions     map[string][]template.HTML
}

// Engine renders pages through layouts found under dir.
type Engine struct {
	dir string
	lru *cache.LRU
}

// New returns an Engine.  An empty dir uses only the built-in layout.
func New(dir string, capacity int) *Engine {
	return &Engine{dir: dir, lru: cache.New(capacity)}
}

// Invalidate forgets the parsed layout of a page (after a save).
func (e *Engine) Invalidate(pageID string) { e.lru.Remove(pageID) }

// Render executes the page's layout and streams it to w.
func (e *Engine) Render(w io.Writer, p Page) error {
	t, err := e.load(p.ID)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, execName(t, "layout"), p)
}

// RenderToString mirrors Render, but writes to a buffer.
func (e *Engine) RenderToString(p Page) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, p); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

//
// internal: load
//

func (e *Engine) load(pageID string) (*template.Template, error) {
	if v, ok := e.lru.Get(pageID); ok {
		return v.(*template.Template), nil
	}

	t := template.New("layout").Funcs(funcMap())
	var err error
	if path := e.lookup(pageID); path != "" {
		t, err = t.ParseFiles(path)
	} else {
		t, err = t.Parse(builtinLayout)
	}
	if err != nil {
		return nil, err
	}

	e.lru.Add(pageID, t)
	return t, nil
}

func (e *Engine) lookup(pageID string) string {
	if e.dir == "" {
		return ""
	}
	paths := []string{
		filepath.Join(e.dir, "pages", pageID+".html"),
		filepath.Join(e.dir, "layout.html"),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

//
// helpers
//

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":   dict,
		"region": region,
	}
}

// execName picks the template name to execute.
//
// Priority:
//  1. If the set defines "<name>" (via {{ define }}), run that.
//  2. Otherwise, run the file itself (named after its base name).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name); tmpl != nil && tmpl.Tree != nil {
		return name
	}
	for _, tmpl := range t.Templates() {
		if tmpl.Tree != nil {
			return tmpl.Name()
		}
	}
	return name
}

// region returns the rendered blocks of one region: {{ range region $ "top" }}.
func region(p Page, name string) []template.HTML {
	return p.Regions[name]
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
