// internal/auth/context.go
//
// Request-scoped user identity.
//
// Usage
// -----
//
//	// Authenticate middleware attaches the id taken from the bearer token.
//	ctx = auth.WithUser(ctx, 123)
//
//	// The current-user context provider reads it back.
//	id, ok := auth.UserID(ctx)   // 123, true
//
// Notes
// -----
// • Anonymous requests carry no id; providers map that to AnonymousID.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"strings"
)

// AnonymousID is the user id of a visitor without credentials.
const AnonymousID int64 = 0

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given userID.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the userID from ctx.  It returns (0, false) if no user is set
// or if the stored value is not an int64.
func UserID(ctx context.Context) (int64, bool) {
	v := ctx.Value(userKey{})
	id, ok := v.(int64)
	return id, ok
}

// User is the value held by the "current_user" page context.
type User struct {
	ID    int64    `json:"id"    db:"id"`
	Name  string   `json:"name"  db:"name"`
	Roles []string `json:"roles" db:"-"`
}

// Anonymous reports whether u is the anonymous visitor.
func (u User) Anonymous() bool { return u.ID == AnonymousID }

// HasRole reports whether u holds role (case-insensitive).
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
