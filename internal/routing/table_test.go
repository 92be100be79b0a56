// internal/routing/table_test.go
//
// Unit-tests for the swappable page route table.
//
// Context
// -------
// These tests verify three behaviours:
//
//   • A rebuilt table dispatches the matched page id with chi URL params.
//   • Paths outside the table 404.
//   • A second Rebuild fully replaces the first route set.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// recordingPages remembers the last page id and `{node}` value served.
type recordingPages struct {
	page, node string
}

func (p *recordingPages) ServePage(w http.ResponseWriter, r *http.Request, pageID string) {
	p.page = pageID
	p.node = chi.URLParam(r, "node")
	w.WriteHeader(http.StatusOK)
}

func serve(h http.Handler, path string) int {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr.Code
}

func TestTable_Dispatch(t *testing.T) {
	pages := &recordingPages{}
	table := NewTable(pages)

	if code := serve(table, "/about"); code != http.StatusNotFound {
		t.Fatalf("empty table status = %d, want 404", code)
	}

	n := table.Rebuild([]Route{
		{Pattern: "/about", PageID: "about"},
		{Pattern: "node/{node}", PageID: "node_view"},
	})
	if n != 2 || table.Version() != 1 {
		t.Fatalf("loaded=%d version=%d, want 2 and 1", n, table.Version())
	}

	if code := serve(table, "/node/42"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if pages.page != "node_view" || pages.node != "42" {
		t.Fatalf("served page=%q node=%q", pages.page, pages.node)
	}
	if code := serve(table, "/missing"); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestTable_RebuildReplaces(t *testing.T) {
	table := NewTable(&recordingPages{})
	table.Rebuild([]Route{{Pattern: "/old", PageID: "old"}})
	table.Rebuild([]Route{{Pattern: "/new", PageID: "new"}})

	if code := serve(table, "/old"); code != http.StatusNotFound {
		t.Fatalf("/old status = %d, want 404", code)
	}
	if code := serve(table, "/new"); code != http.StatusOK {
		t.Fatalf("/new status = %d, want 200", code)
	}
}
