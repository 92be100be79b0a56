// internal/store/sql.go
//
// SQL page store.
//
// Context
// -------
// Schema (MySQL 8 / MariaDB 10.5):
//
//	page (id VARCHAR(64) PK, label, path, status, config JSON, updated_at)
//
// Workflow
// --------
//  1. The composition root opens the pool with database.Open and runs
//     Schema through the pages component's migrations.
//  2. Every helper executes exactly one parameterised statement.
//  3. Save is an upsert; the whole JSON document is replaced.
//
// Notes
// -----
//   - Column list matches `row`; update both together.
//   - Oxford commas, two spaces after periods, no m-dash.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/pagemanager/internal/page"
)

// Schema creates the page table.
const Schema = `
CREATE TABLE IF NOT EXISTS page (
    id         VARCHAR(64)  NOT NULL PRIMARY KEY,
    label      VARCHAR(255) NOT NULL,
    path       VARCHAR(255) NOT NULL,
    status     BOOLEAN      NOT NULL DEFAULT TRUE,
    config     JSON         NOT NULL,
    updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

type row struct {
	ID     string `db:"id"`
	Label  string `db:"label"`
	Path   string `db:"path"`
	Status bool   `db:"status"`
	Config []byte `db:"config"`
}

func (r row) decode() (page.Config, error) {
	var cfg page.Config
	if err := json.Unmarshal(r.Config, &cfg); err != nil {
		return page.Config{}, fmt.Errorf("decode page %s: %w", r.ID, err)
	}
	// Columns win over the document so a manual SQL fix takes effect.
	cfg.ID, cfg.Label, cfg.Path, cfg.Status = r.ID, r.Label, r.Path, r.Status
	return cfg, nil
}

// SQLStore keeps pages in the `page` table.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore returns a store bound to db.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// Load fetches one page.
func (s *SQLStore) Load(ctx context.Context, id string) (page.Config, error) {
	const q = `
        SELECT id, label, path, status, config
        FROM   page
        WHERE  id = ?
        LIMIT  1`
	var r row
	if err := s.db.GetContext(ctx, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return page.Config{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return page.Config{}, err
	}
	return r.decode()
}

// All returns every page ordered by id.
func (s *SQLStore) All(ctx context.Context) ([]page.Config, error) {
	const q = `
        SELECT id, label, path, status, config
        FROM   page
        ORDER  BY id`
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make([]page.Config, 0, len(rows))
	for _, r := range rows {
		cfg, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Save inserts or replaces cfg.
func (s *SQLStore) Save(ctx context.Context, cfg page.Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", cfg.ID, err)
	}
	const q = `
        INSERT INTO page (id, label, path, status, config)
        VALUES (:id, :label, :path, :status, :config)
        ON DUPLICATE KEY UPDATE
               label  = VALUES(label),
               path   = VALUES(path),
               status = VALUES(status),
               config = VALUES(config)`
	_, err = s.db.NamedExecContext(ctx, q, row{
		ID: cfg.ID, Label: cfg.Label, Path: cfg.Path, Status: cfg.Status, Config: doc,
	})
	return err
}

// Delete removes a page.  A missing id is ErrNotFound.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Exists reports whether a page id is taken.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM page WHERE id = ?`, id)
	return n > 0, err
}
