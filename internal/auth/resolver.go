package auth

import (
	"context"
	"log"

	"github.com/iliyamo/identity-service/internal/cache"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/token"
)

// Credentials carries whatever the transport extracted from a request.
// When both are present the token wins and the API key is ignored.
type Credentials struct {
	Token  string
	APIKey string
}

// Principal is an authenticated caller. Session is nil when the caller
// authenticated with an API key; anything session-scoped ("current
// session") is meaningless for such callers and must answer not-found.
type Principal struct {
	User    *model.User
	Session *model.Session
}

// Resolver turns request credentials into a Principal. All verification
// failures collapse to ErrUnauthorized; the specific cause is only
// logged. The verification cache short-circuits the whole token path: a
// hit is trusted as already verified for the lifetime of the entry.
type Resolver struct {
	users    UserStore
	sessions SessionStore
	cache    *cache.SessionCache
}

// NewResolver builds a Resolver. cache may be nil (every request is then
// fully verified).
func NewResolver(users UserStore, sessions SessionStore, c *cache.SessionCache) *Resolver {
	return &Resolver{users: users, sessions: sessions, cache: c}
}

// Require resolves the credentials and enforces the required role,
// propagating ErrUnauthorized on any failure.
func (r *Resolver) Require(ctx context.Context, creds Credentials, required model.Role) (*Principal, error) {
	if creds.Token != "" {
		return r.resolveToken(ctx, creds.Token, required)
	}
	return r.resolveAPIKey(ctx, creds.APIKey, required)
}

// RequireAdmin is Require with the ADMIN role floor.
func (r *Resolver) RequireAdmin(ctx context.Context, creds Credentials) (*Principal, error) {
	return r.Require(ctx, creds, model.RoleAdmin)
}

// Accept attempts resolution but treats every failure as "anonymous
// caller": it returns nil instead of an error. Used by endpoints that
// merely behave differently for authenticated callers, like login.
func (r *Resolver) Accept(ctx context.Context, creds Credentials, required model.Role) *Principal {
	p, err := r.Require(ctx, creds, required)
	if err != nil {
		return nil
	}
	return p
}

// resolveToken is the ordered token protocol. Each numbered step either
// short-circuits to success or fails the whole resolution:
//
//  1. cache hit on the raw token string -> trust it, skip verification
//  2. unverified decode to recover user/session ids
//  3. user lookup
//  4. session lookup + ownership match
//  5. verified decode against the session's stored secret (sig + expiry)
//  6. cache populate
//  7. role floor check
//
// The role check runs last so that an entry is cached even when this
// particular endpoint's floor rejects the caller.
func (r *Resolver) resolveToken(ctx context.Context, tok string, required model.Role) (*Principal, error) {
	if e, ok := r.cache.Get(ctx, tok); ok {
		if !e.Session.Role.AtLeast(required) {
			log.Printf("auth: cached session %s role %s below required %s", e.Session.UUID, e.Session.Role, required)
			return nil, ErrUnauthorized
		}
		return &Principal{User: &e.User, Session: &e.Session}, nil
	}

	claims, err := token.DecodeUnverified(tok)
	if err != nil {
		log.Printf("auth: token decode failed: %v", err)
		return nil, ErrUnauthorized
	}
	if claims.UserUUID == "" || claims.SessionUUID == "" {
		log.Printf("auth: token claims missing user or session id")
		return nil, ErrUnauthorized
	}

	user, err := r.users.GetByUUID(ctx, claims.UserUUID)
	if err != nil {
		log.Printf("auth: token user %s not resolvable: %v", claims.UserUUID, err)
		return nil, ErrUnauthorized
	}
	sess, err := r.sessions.GetByUUID(ctx, claims.SessionUUID)
	if err != nil || sess.UserUUID != user.UUID {
		log.Printf("auth: token session %s not resolvable for user %s", claims.SessionUUID, user.UUID)
		return nil, ErrUnauthorized
	}

	verified, err := token.DecodeVerified(tok, sess.Secret)
	if err != nil {
		log.Printf("auth: token verification failed for session %s: %v", sess.UUID, err)
		return nil, ErrUnauthorized
	}
	sess.Role = verified.Role

	r.cache.Set(ctx, tok, cache.Entry{Session: *sess, User: *user})

	if !sess.Role.AtLeast(required) {
		log.Printf("auth: session %s role %s below required %s", sess.UUID, sess.Role, required)
		return nil, ErrUnauthorized
	}
	return &Principal{User: user, Session: sess}, nil
}

// resolveAPIKey authenticates by API key. No session exists on this
// path, so Principal.Session stays nil.
func (r *Resolver) resolveAPIKey(ctx context.Context, key string, required model.Role) (*Principal, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	user, err := r.users.GetByAPIKey(ctx, key)
	if err != nil {
		log.Printf("auth: api key not resolvable: %v", err)
		return nil, ErrUnauthorized
	}
	if !user.Role.AtLeast(required) {
		log.Printf("auth: api key user %s role %s below required %s", user.UUID, user.Role, required)
		return nil, ErrUnauthorized
	}
	return &Principal{User: user}, nil
}
