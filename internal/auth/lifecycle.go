package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/token"
	"github.com/iliyamo/identity-service/internal/utils"
)

const (
	// DefaultSessionValidity is the login session lifetime.
	DefaultSessionValidity = 14 * 24 * time.Hour
	// ShortLivedValidity is the lifetime of reset and verification
	// tokens, which are ordinary sessions with a short leash.
	ShortLivedValidity = time.Hour
)

// TokenKind selects which user field a short-lived token is stored into.
type TokenKind string

const (
	KindReset        TokenKind = "reset"
	KindVerification TokenKind = "verification"
)

// NotifyFunc is called after a short-lived token is issued so a mail (or
// any other notification) can be dispatched. Implementations must not
// block: the lifecycle invokes the hook inline on the request path.
type NotifyFunc func(user *model.User, kind TokenKind, tok string)

// Lifecycle creates and destroys sessions and owns account registration.
// It is the only writer of session rows.
type Lifecycle struct {
	users    UserStore
	sessions SessionStore
	notify   NotifyFunc
}

// NewLifecycle builds a Lifecycle. notify may be nil.
func NewLifecycle(users UserStore, sessions SessionStore, notify NotifyFunc) *Lifecycle {
	return &Lifecycle{users: users, sessions: sessions, notify: notify}
}

// Create issues a session for the user. The session id is a UUIDv7 so
// ids sort in creation order; the signing secret is fresh per session,
// and the token snapshots the user's current role. A zero or negative
// validity produces an already-expired session, which is legal input.
func (l *Lifecycle) Create(ctx context.Context, user *model.User, validity time.Duration) (*model.Session, error) {
	if user == nil || user.UUID == "" {
		return nil, ErrValidation
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	secret, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	claims := token.NewClaims(user.UUID, id.String(), user.Role, now, validity)
	tok, err := token.Encode(claims, secret)
	if err != nil {
		return nil, err
	}
	s := &model.Session{
		UUID:      id.String(),
		UserUUID:  user.UUID,
		Token:     tok,
		Secret:    secret,
		Role:      user.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// IssueShortLived creates a one-hour session and stores its token into
// the user's reset or verification field, then fires the notification
// hook. The returned session's token is what the mail carries.
func (l *Lifecycle) IssueShortLived(ctx context.Context, user *model.User, kind TokenKind) (*model.Session, error) {
	if user == nil {
		return nil, ErrValidation
	}
	s, err := l.Create(ctx, user, ShortLivedValidity)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindReset:
		user.ResetToken = s.Token
	case KindVerification:
		user.VerificationToken = s.Token
	default:
		return nil, ErrValidation
	}
	if err := l.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if l.notify != nil {
		l.notify(user, kind, s.Token)
	}
	return s, nil
}

// ExpireAndDelete removes a session by id. It is idempotent; a session
// that is already gone is the desired end state, not an error.
func (l *Lifecycle) ExpireAndDelete(ctx context.Context, sessionUUID string) error {
	err := l.sessions.Delete(ctx, sessionUUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// IsExpired reports whether the session's token has passed its expiry.
// A session whose token cannot even be parsed is unusable and counts as
// expired.
func (l *Lifecycle) IsExpired(s *model.Session) bool {
	expired, err := token.IsExpired(s.Token, time.Now().UTC())
	if err != nil {
		return true
	}
	return expired
}

// Partition splits sessions into the active set and the ids of expired
// ones. Expiry is computed lazily from each token; callers hand the
// expired ids to the cleanup queue rather than deleting inline.
func (l *Lifecycle) Partition(sessions []*model.Session) (active []*model.Session, expired []string) {
	for _, s := range sessions {
		if l.IsExpired(s) {
			expired = append(expired, s.UUID)
		} else {
			active = append(active, s)
		}
	}
	return active, expired
}

// RegisterLocal creates an account with username/password credentials.
// The username is normalized here so every store sees the same casing,
// not just the MySQL one. The user starts unverified with the default
// USER role unless a caller with admin authority passes a different
// one. The API key is generated here and never changes.
func (l *Lifecycle) RegisterLocal(ctx context.Context, username, password string, role model.Role, bcryptCost int) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrValidation
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return nil, err
	}
	apiKey, err := utils.NewAPIKey()
	if err != nil {
		return nil, err
	}
	if role == 0 {
		role = model.RoleUser
	}
	u := &model.User{
		UUID:         uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		APIKey:       apiKey,
	}
	if err := l.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// FindOrCreateExternal consumes the output of an external identity
// handshake (provider + stable uid). The first login creates a verified
// account with no local credentials; later logins return the same row.
func (l *Lifecycle) FindOrCreateExternal(ctx context.Context, provider, uid, name string) (*model.User, error) {
	if provider == "" || uid == "" {
		return nil, ErrValidation
	}
	u, err := l.users.GetByOAuth(ctx, provider, uid)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	apiKey, err := utils.NewAPIKey()
	if err != nil {
		return nil, err
	}
	u = &model.User{
		UUID:          uuid.NewString(),
		Role:          model.RoleUser,
		Verified:      true,
		APIKey:        apiKey,
		OAuthProvider: provider,
		OAuthUID:      uid,
		OAuthName:     name,
	}
	if err := l.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
