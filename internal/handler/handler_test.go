package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/utils"
)

const testBcryptCost = 4 // fast hashing for tests

// ----- in-memory stores -----

type fakeUsers struct {
	users map[string]*model.User
}

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*model.User{}}
	for _, u := range us {
		f.users[u.UUID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	for _, e := range f.users {
		if e.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	f.users[u.UUID] = u
	return nil
}

func (f *fakeUsers) GetByUUID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == strings.ToLower(username) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByAPIKey(_ context.Context, key string) (*model.User, error) {
	for _, u := range f.users {
		if u.APIKey == key {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByOAuth(_ context.Context, provider, uid string) (*model.User, error) {
	for _, u := range f.users {
		if u.OAuthProvider == provider && u.OAuthUID == uid {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.UUID]; !ok {
		return repository.ErrNotFound
	}
	for _, e := range f.users {
		if e.UUID != u.UUID && e.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	f.users[u.UUID] = u
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeSessions struct {
	sessions map[string]*model.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*model.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, s *model.Session) error {
	f.sessions[s.UUID] = s
	return nil
}

func (f *fakeSessions) GetByUUID(_ context.Context, id string) (*model.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userUUID string) ([]*model.Session, error) {
	var out []*model.Session
	for _, s := range f.sessions {
		if s.UserUUID == userUUID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) DeleteForUser(_ context.Context, userUUID string) error {
	for id, s := range f.sessions {
		if s.UserUUID == userUUID {
			delete(f.sessions, id)
		}
	}
	return nil
}

// ----- fixture -----

type fixture struct {
	users    *fakeUsers
	sessions *fakeSessions
	lc       *auth.Lifecycle
	sh       *SessionHandler
	uh       *UserHandler
	cleaned  []string
}

func newFixture(us ...*model.User) *fixture {
	f := &fixture{users: newFakeUsers(us...), sessions: newFakeSessions()}
	f.lc = auth.NewLifecycle(f.users, f.sessions, nil)
	f.sh = NewSessionHandler(f.users, f.sessions, f.lc, time.Hour, func(ids []string) {
		f.cleaned = append(f.cleaned, ids...)
	})
	f.uh = NewUserHandler(f.users, f.sessions, f.lc, testBcryptCost)
	return f
}

func testUser(t *testing.T, username, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, testBcryptCost)
	require.NoError(t, err)
	return &model.User{
		UUID:         uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Verified:     true,
		APIKey:       utils.MustRandomHex(32),
		CreatedAt:    time.Now().UTC(),
	}
}

// ----- request plumbing -----

func testCtx(t *testing.T, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func asPrincipal(c echo.Context, u *model.User, s *model.Session) {
	middleware.SetPrincipal(c, &auth.Principal{User: u, Session: s})
}

func withParam(c echo.Context, name, value string) {
	c.SetParamNames(name)
	c.SetParamValues(value)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
