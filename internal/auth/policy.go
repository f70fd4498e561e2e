package auth

import (
	"log"

	"github.com/iliyamo/identity-service/internal/model"
)

// Owned is the ownership capability: any resource with a single owning
// user exposes that user's UUID. Sessions implement it; future owned
// resources only need this one method to participate in authorization.
type Owned interface {
	OwnerID() string
}

// Authorized decides whether the principal may act on the target.
// Exactly two target shapes exist: a user record, compared by identity,
// and an owned resource, compared by owner. Admins may act on anything.
func Authorized(p *Principal, target any) bool {
	if p == nil || p.User == nil {
		return false
	}
	if p.User.Role.AtLeast(model.RoleAdmin) {
		return true
	}
	switch t := target.(type) {
	case *model.User:
		return t != nil && t.UUID == p.User.UUID
	case Owned:
		return t.OwnerID() == p.User.UUID
	}
	return false
}

// AuthorizeOrFail returns ErrUnauthorized when the principal may not act
// on the target. The denial carries no detail about why; the reason is
// only logged.
func AuthorizeOrFail(p *Principal, target any) error {
	if !Authorized(p, target) {
		if p != nil && p.User != nil {
			log.Printf("auth: user %s not authorized for %T", p.User.UUID, target)
		}
		return ErrUnauthorized
	}
	return nil
}
