// Package auth is the authentication and authorization core: it issues
// and resolves signed session tokens, enforces the ordered role policy,
// and decides resource ownership. It talks to the persistence layer only
// through the store interfaces below, which internal/repository
// implements over MySQL and tests implement in memory.
package auth

import (
	"context"

	"github.com/iliyamo/identity-service/internal/model"
)

// UserStore is the user persistence surface the core needs. Lookups must
// exclude soft-deleted rows and return repository.ErrNotFound for misses.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByUUID(ctx context.Context, uuid string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByAPIKey(ctx context.Context, key string) (*model.User, error)
	GetByOAuth(ctx context.Context, provider, uid string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

// SessionStore is the session persistence surface. Delete is idempotent:
// removing an absent session is not an error.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByUUID(ctx context.Context, uuid string) (*model.Session, error)
	Delete(ctx context.Context, uuid string) error
}
