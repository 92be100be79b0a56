// internal/acl/store.go
//
// Small query helpers for Role-Based Access Control.
//
// Context
// -------
// The ACL model lives in the page manager's database:
//
//	user        (id PK, username, enabled)
//	role        (id PK, name, enabled)
//	role_acl    (role_id, component, action, permitted)
//	user_role   (user_id, role_id)
//
// Two callers need answers:
//  1. The admin API guard asks "is any of this user's roles permitted for
//     component/action?"                         → `RoleAllowed()`
//  2. The current-user context provider asks "who is user X and which
//     roles does X hold?"                        → `Users.Load()`
//
// Roles
// -----
// Every visitor carries one implicit role on top of the stored ones:
// "anonymous" for visitors without credentials, "authenticated" for
// everybody else.  Conditions can test either.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package acl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/pagemanager/internal/auth"
)

// Implicit role names.
const (
	RoleAnonymous     = "anonymous"
	RoleAuthenticated = "authenticated"
)

// Schema creates the ACL tables.  Statements run in order.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS user (
    id       BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(191) NOT NULL UNIQUE,
    enabled  BOOLEAN      NOT NULL DEFAULT TRUE
)`,
	`CREATE TABLE IF NOT EXISTS role (
    id      BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name    VARCHAR(64)  NOT NULL UNIQUE,
    enabled BOOLEAN      NOT NULL DEFAULT TRUE
)`,
	`CREATE TABLE IF NOT EXISTS user_role (
    user_id BIGINT NOT NULL,
    role_id BIGINT NOT NULL,
    PRIMARY KEY (user_id, role_id)
)`,
	`CREATE TABLE IF NOT EXISTS role_acl (
    role_id   BIGINT      NOT NULL,
    component VARCHAR(64) NOT NULL,
    action    VARCHAR(64) NOT NULL,
    permitted BOOLEAN     NOT NULL DEFAULT FALSE,
    PRIMARY KEY (role_id, component, action)
)`,
}

// ErrUnknownUser is returned when a token names a user that does not exist
// or is disabled.
var ErrUnknownUser = errors.New("unknown user")

// UserRoles returns the role *names* bound to userID.  Disabled roles are
// filtered out.
func UserRoles(ctx context.Context, db *sql.DB, userID int64) ([]string, error) {
	const q = `SELECT r.name
                 FROM user_role ur
                 JOIN role r ON r.id = ur.role_id
                WHERE ur.user_id = ? AND r.enabled = TRUE`

	rows, err := db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]string, 0, 4)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// RoleAllowed reports whether *any* of the candidate roles is permitted for the
// given component + action.  It executes one query using IN (? … ?).
//
// Empty roles slice returns false, nil.
func RoleAllowed(ctx context.Context, db *sql.DB, roles []string, component, action string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	q, args, err := sqlx.In(`SELECT 1
            FROM role_acl ra
            JOIN role r ON r.id = ra.role_id
           WHERE r.name IN (?)
             AND ra.component = ?
             AND ra.action   = ?
             AND ra.permitted = TRUE
           LIMIT 1`, roles, component, action)
	if err != nil {
		return false, err
	}

	var dummy int
	err = db.QueryRowContext(ctx, q, args...).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

/*──────────────────────────── user loader ─────────────────────────────────*/

// Users loads auth.User values with their roles.
type Users struct {
	db *sqlx.DB
}

// NewUsers returns a loader bound to db.
func NewUsers(db *sqlx.DB) *Users { return &Users{db: db} }

// Load returns the user with id.  AnonymousID yields the anonymous visitor
// without touching the database.
func (u *Users) Load(ctx context.Context, id int64) (auth.User, error) {
	if id == auth.AnonymousID {
		return auth.User{ID: auth.AnonymousID, Name: "Anonymous", Roles: []string{RoleAnonymous}}, nil
	}

	var usr auth.User
	err := u.db.GetContext(ctx, &usr,
		`SELECT id, username AS name FROM user WHERE id = ? AND enabled = TRUE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, fmt.Errorf("%w: %d", ErrUnknownUser, id)
	}
	if err != nil {
		return auth.User{}, err
	}

	roles, err := UserRoles(ctx, u.db.DB, id)
	if err != nil {
		return auth.User{}, err
	}
	usr.Roles = append([]string{RoleAuthenticated}, roles...)
	return usr, nil
}
