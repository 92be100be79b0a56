// internal/store/store.go
//
// Page persistence.
//
// Context
// -------
// A page is stored as its page.Config.  Two back-ends exist:
//
//   - SQLStore  – the `page` table in MySQL / MariaDB.  The full config is a
//     JSON document; id, label, path, and status are duplicated into
//     columns so listings never decode JSON.
//   - FileStore – one YAML file per page under a directory.  Used for
//     development and for shipping default pages with a deployment.
//
// Both satisfy Store.  Callers never see sql.ErrNoRows or fs.ErrNotExist;
// a missing page is always ErrNotFound.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package store

import (
	"context"
	"errors"

	"github.com/yanizio/pagemanager/internal/page"
)

// ErrNotFound is returned when a page id does not exist.
var ErrNotFound = errors.New("page not found")

// Store loads and saves page configurations.
type Store interface {
	Load(ctx context.Context, id string) (page.Config, error)
	All(ctx context.Context) ([]page.Config, error)
	Save(ctx context.Context, cfg page.Config) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}
