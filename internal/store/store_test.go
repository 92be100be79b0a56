// internal/store/store_test.go
//
// Unit-tests for the page stores.  SQLStore runs against sqlmock; FileStore
// runs against t.TempDir().

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/plugin"
)

func samplePage() page.Config {
	return page.Config{
		ID: "promo", Label: "Promo", Path: "/promo/{code}", Status: true,
		Parameters: map[string]string{"code": "string"},
		Variants: []plugin.Config{{
			ID: "block_display", UUID: "v1", Label: "Default", Weight: 10,
			Blocks: []plugin.Config{{
				ID: "markup", UUID: "b1", Region: "top",
				Settings: map[string]any{"body": "<h1>Hi</h1>"},
			}},
		}},
		Access: []plugin.Config{{ID: "authenticated", UUID: "c1", Negate: true}},
	}
}

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSQLStore_Load(t *testing.T) {
	s, mock := newMock(t)
	want := samplePage()
	doc, _ := json.Marshal(want)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, label, path, status, config FROM page WHERE id = ? LIMIT 1`)).
		WithArgs("promo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label", "path", "status", "config"}).
			AddRow("promo", "Promo", "/promo/{code}", true, doc))

	got, err := s.Load(context.Background(), "promo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != want.ID || len(got.Variants) != 1 || got.Variants[0].Blocks[0].Region != "top" {
		t.Fatalf("unexpected config: %+v", got)
	}
	if !got.Access[0].Negate {
		t.Fatalf("negate flag lost: %+v", got.Access)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_LoadMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, label, path, status, config FROM page`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLStore_Save(t *testing.T) {
	s, mock := newMock(t)
	cfg := samplePage()
	doc, _ := json.Marshal(cfg)

	mock.ExpectExec(`INSERT INTO page \(id, label, path, status, config\)`).
		WithArgs("promo", "Promo", "/promo/{code}", true, doc).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_DeleteAndExists(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM page WHERE id = ?`)).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.Delete(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM page WHERE id = ?`)).
		WithArgs("promo").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	ok, err := s.Exists(context.Background(), "promo")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	want := samplePage()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, page.Config{ID: "about", Label: "About", Path: "/about"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "promo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	all, err := s.All(ctx)
	if err != nil || len(all) != 2 || all[0].ID != "about" || all[1].ID != "promo" {
		t.Fatalf("All = %+v, %v", all, err)
	}

	if ok, _ := s.Exists(ctx, "about"); !ok {
		t.Fatalf("about should exist")
	}
	if err := s.Delete(ctx, "about"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "about"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
	if _, err := s.Load(ctx, "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("traversal err = %v, want ErrNotFound", err)
	}
}
