package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/identity-service/internal/model"
)

func principalFor(u *model.User) *Principal { return &Principal{User: u} }

func TestAuthorized_NilPrincipal(t *testing.T) {
	target := &model.User{UUID: "u-1"}
	assert.False(t, Authorized(nil, target))
	assert.False(t, Authorized(&Principal{}, target))
}

func TestAuthorized_AdminActsOnAnything(t *testing.T) {
	admin := &model.User{UUID: "admin", Role: model.RoleAdmin}
	otherUser := &model.User{UUID: "u-2", Role: model.RoleUser}
	otherSession := &model.Session{UUID: "s-2", UserUUID: "u-2"}

	assert.True(t, Authorized(principalFor(admin), otherUser))
	assert.True(t, Authorized(principalFor(admin), otherSession))
}

func TestAuthorized_UserTargetComparedByIdentity(t *testing.T) {
	u1 := &model.User{UUID: "u-1", Role: model.RoleUser}
	u2 := &model.User{UUID: "u-2", Role: model.RoleUser}

	assert.True(t, Authorized(principalFor(u1), u1))
	assert.False(t, Authorized(principalFor(u1), u2))
	assert.False(t, Authorized(principalFor(u1), (*model.User)(nil)))
}

func TestAuthorized_OwnedTargetComparedByOwner(t *testing.T) {
	u1 := &model.User{UUID: "u-1", Role: model.RoleUser}
	u2 := &model.User{UUID: "u-2", Role: model.RoleUser}
	s2 := &model.Session{UUID: "s-2", UserUUID: "u-2"}

	assert.False(t, Authorized(principalFor(u1), s2), "users may not touch each other's sessions")
	assert.True(t, Authorized(principalFor(u2), s2))
}

func TestAuthorized_UnknownTargetShape(t *testing.T) {
	u := &model.User{UUID: "u-1", Role: model.RoleUser}
	assert.False(t, Authorized(principalFor(u), struct{}{}))
	assert.False(t, Authorized(principalFor(u), nil))
}

func TestAuthorizeOrFail(t *testing.T) {
	u1 := &model.User{UUID: "u-1", Role: model.RoleUser}
	s1 := &model.Session{UUID: "s-1", UserUUID: "u-1"}
	s2 := &model.Session{UUID: "s-2", UserUUID: "u-2"}

	assert.NoError(t, AuthorizeOrFail(principalFor(u1), s1))
	assert.ErrorIs(t, AuthorizeOrFail(principalFor(u1), s2), ErrUnauthorized)
	assert.ErrorIs(t, AuthorizeOrFail(nil, s1), ErrUnauthorized)
}
