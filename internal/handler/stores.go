// Package handler implements the HTTP surface over the auth core:
// session endpoints (login, listing, logout) and user endpoints
// (registration, profile, token issuance, deletion). Handlers read the
// principal placed into the context by the middleware guards and lean on
// the auth package for every allow/deny decision.
package handler

import (
	"context"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/model"
)

// UserStore extends the core's user surface with the operations only
// handlers need. repository.UserRepo satisfies it.
type UserStore interface {
	auth.UserStore
	SoftDelete(ctx context.Context, uuid string) error
	List(ctx context.Context) ([]*model.User, error)
}

// SessionStore extends the core's session surface with listing and the
// user-level cascade. repository.SessionRepo satisfies it.
type SessionStore interface {
	auth.SessionStore
	ListByUser(ctx context.Context, userUUID string) ([]*model.Session, error)
	DeleteForUser(ctx context.Context, userUUID string) error
}
