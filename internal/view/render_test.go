package view

import (
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func samplePage() Page {
	return Page{
		ID:          "promo",
		Title:       "Spring <sale>",
		RegionOrder: []string{"top", "bottom"},
		Regions: map[string][]template.HTML{
			"top":    {"<h1>Hello</h1>", "<p>two</p>"},
			"bottom": {},
		},
	}
}

func TestRenderBuiltinLayout(t *testing.T) {
	out, err := New("", 4).RenderToString(samplePage())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(out)

	for _, want := range []string{
		"<title>Spring &lt;sale&gt;</title>",
		`class="page page-promo"`,
		`<section class="region region-top">`,
		"<h1>Hello</h1>",
		`<section class="region region-bottom">`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "<h1>Hello</h1>") > strings.Index(s, "<p>two</p>") {
		t.Errorf("blocks rendered out of order:\n%s", s)
	}
}

func TestLookupPrecedence(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "layout.html"), `site:{{ .Title }}`)
	mustWrite(t, filepath.Join(dir, "pages", "promo.html"),
		`{{ define "layout" }}page:{{ range region $ "top" }}{{ . }}{{ end }}{{ end }}`)

	e := New(dir, 4)

	out, err := e.RenderToString(samplePage())
	if err != nil {
		t.Fatalf("render promo: %v", err)
	}
	if string(out) != "page:<h1>Hello</h1><p>two</p>" {
		t.Fatalf("promo = %q", out)
	}

	other := samplePage()
	other.ID = "about"
	other.Title = "About"
	out, err = e.RenderToString(other)
	if err != nil {
		t.Fatalf("render about: %v", err)
	}
	if string(out) != "site:About" {
		t.Fatalf("about = %q", out)
	}
}

func TestInvalidateReparses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.html")
	mustWrite(t, path, `v1`)

	e := New(dir, 4)
	if out, _ := e.RenderToString(samplePage()); out != "v1" {
		t.Fatalf("first = %q", out)
	}

	mustWrite(t, path, `v2`)
	if out, _ := e.RenderToString(samplePage()); out != "v1" {
		t.Fatalf("cached = %q, want v1", out)
	}

	e.Invalidate("promo")
	if out, _ := e.RenderToString(samplePage()); out != "v2" {
		t.Fatalf("after invalidate = %q, want v2", out)
	}
}

func TestDict(t *testing.T) {
	m := dict("a", 1, "b", "two", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Fatalf("dict = %v", m)
	}
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
