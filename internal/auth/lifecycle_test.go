package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/token"
	"github.com/iliyamo/identity-service/internal/utils"
)

func testUser(t *testing.T, users *memUsers, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		UUID:     "user-" + utils.MustRandomHex(4),
		Username: "u" + utils.MustRandomHex(4) + "@example.com",
		Role:     role,
		Verified: true,
		APIKey:   utils.MustRandomHex(32),
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestLifecycleCreate_TokenVerifiesAgainstOwnSecret(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()
	l := NewLifecycle(users, sessions, nil)
	u := testUser(t, users, model.RoleUser)

	s, err := l.Create(context.Background(), u, DefaultSessionValidity)
	require.NoError(t, err)

	claims, err := token.DecodeVerified(s.Token, s.Secret)
	require.NoError(t, err)
	assert.Equal(t, u.UUID, claims.UserUUID)
	assert.Equal(t, s.UUID, claims.SessionUUID)
	assert.Equal(t, u.Role, claims.Role)

	stored, err := sessions.GetByUUID(context.Background(), s.UUID)
	require.NoError(t, err)
	assert.Equal(t, u.UUID, stored.UserUUID)
	assert.False(t, l.IsExpired(s))
}

func TestLifecycleCreate_SecretsAreUniquePerSession(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()
	l := NewLifecycle(users, sessions, nil)
	u := testUser(t, users, model.RoleUser)

	a, err := l.Create(context.Background(), u, time.Hour)
	require.NoError(t, err)
	b, err := l.Create(context.Background(), u, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.Secret, b.Secret)
	assert.NotEqual(t, a.UUID, b.UUID)
}

func TestLifecycleCreate_NilUser(t *testing.T) {
	l := NewLifecycle(newMemUsers(), newMemSessions(), nil)
	_, err := l.Create(context.Background(), nil, time.Hour)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLifecycleCreate_NonPositiveValidityIsImmediatelyExpired(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()
	l := NewLifecycle(users, sessions, nil)
	u := testUser(t, users, model.RoleUser)

	for _, validity := range []time.Duration{0, -time.Hour} {
		s, err := l.Create(context.Background(), u, validity)
		require.NoError(t, err)
		assert.True(t, l.IsExpired(s), "validity %s", validity)
	}
}

func TestIssueShortLived(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()

	var gotKind TokenKind
	var gotToken string
	l := NewLifecycle(users, sessions, func(_ *model.User, kind TokenKind, tok string) {
		gotKind, gotToken = kind, tok
	})
	u := testUser(t, users, model.RoleUser)

	s, err := l.IssueShortLived(context.Background(), u, KindReset)
	require.NoError(t, err)
	assert.Equal(t, KindReset, gotKind)
	assert.Equal(t, s.Token, gotToken)

	stored, err := users.GetByUUID(context.Background(), u.UUID)
	require.NoError(t, err)
	assert.Equal(t, s.Token, stored.ResetToken)
	assert.Empty(t, stored.VerificationToken)

	// The reset token is an ordinary session with a one-hour leash.
	claims, err := token.DecodeVerified(s.Token, s.Secret)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(ShortLivedValidity).Unix(), claims.ExpiresAt.Unix(), 5)

	v, err := l.IssueShortLived(context.Background(), u, KindVerification)
	require.NoError(t, err)
	stored, err = users.GetByUUID(context.Background(), u.UUID)
	require.NoError(t, err)
	assert.Equal(t, v.Token, stored.VerificationToken)

	_, err = l.IssueShortLived(context.Background(), u, TokenKind("bogus"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpireAndDelete_Idempotent(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()
	l := NewLifecycle(users, sessions, nil)
	u := testUser(t, users, model.RoleUser)

	s, err := l.Create(context.Background(), u, time.Hour)
	require.NoError(t, err)

	require.NoError(t, l.ExpireAndDelete(context.Background(), s.UUID))
	assert.Equal(t, 0, sessions.Len())
	// Second delete of the same id: same end state, no error.
	require.NoError(t, l.ExpireAndDelete(context.Background(), s.UUID))
}

func TestPartition(t *testing.T) {
	users, sessions := newMemUsers(), newMemSessions()
	l := NewLifecycle(users, sessions, nil)
	u := testUser(t, users, model.RoleUser)

	live, err := l.Create(context.Background(), u, time.Hour)
	require.NoError(t, err)
	dead, err := l.Create(context.Background(), u, -time.Minute)
	require.NoError(t, err)

	active, expired := l.Partition([]*model.Session{live, dead})
	require.Len(t, active, 1)
	assert.Equal(t, live.UUID, active[0].UUID)
	assert.Equal(t, []string{dead.UUID}, expired)
}

func TestRegisterLocal(t *testing.T) {
	users := newMemUsers()
	l := NewLifecycle(users, newMemSessions(), nil)

	u, err := l.RegisterLocal(context.Background(), "new@example.com", "s3cret", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role, "role defaults to USER")
	assert.False(t, u.Verified, "local accounts start unverified")
	assert.Len(t, u.APIKey, 64)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret"))

	_, err = l.RegisterLocal(context.Background(), "new2@example.com", "", 0, 4)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.RegisterLocal(context.Background(), "", "pw", 0, 4)
	assert.ErrorIs(t, err, ErrValidation)
}

// Normalization belongs to the core, not the MySQL layer, so it holds
// no matter which store backs the lifecycle.
func TestRegisterLocalNormalizesUsername(t *testing.T) {
	users := newMemUsers()
	l := NewLifecycle(users, newMemSessions(), nil)

	u, err := l.RegisterLocal(context.Background(), "  MixedCase@Example.COM ", "s3cret", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "mixedcase@example.com", u.Username)

	_, err = l.RegisterLocal(context.Background(), "   ", "pw", 0, 4)
	assert.ErrorIs(t, err, ErrValidation, "whitespace-only username is empty after trimming")
}

func TestFindOrCreateExternal(t *testing.T) {
	users := newMemUsers()
	l := NewLifecycle(users, newMemSessions(), nil)
	ctx := context.Background()

	u, err := l.FindOrCreateExternal(ctx, "github", "gh-123", "Alice")
	require.NoError(t, err)
	assert.True(t, u.Verified, "external identities arrive verified")
	assert.True(t, u.HasCredentials())
	assert.Empty(t, u.PasswordHash)

	again, err := l.FindOrCreateExternal(ctx, "github", "gh-123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, u.UUID, again.UUID, "second login finds the same account")

	_, err = l.FindOrCreateExternal(ctx, "", "gh-123", "")
	assert.ErrorIs(t, err, ErrValidation)
}
