package auth

import (
	"context"
	"sync"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository"
)

// In-memory store fakes. Reads is bumped on every lookup so tests can
// prove the cache-hit path touches no store at all.

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	Reads int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if u.Username != "" && other.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	cp := *u
	m.byID[u.UUID] = &cp
	return nil
}

func (m *memUsers) find(pred func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	for _, u := range m.byID {
		if u.DeletedAt == nil && pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByUUID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.UUID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == name })
}

func (m *memUsers) GetByAPIKey(_ context.Context, key string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.APIKey == key })
}

func (m *memUsers) GetByOAuth(_ context.Context, provider, uid string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.OAuthProvider == provider && u.OAuthUID == uid })
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.UUID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.byID[u.UUID] = &cp
	return nil
}

type memSessions struct {
	mu    sync.Mutex
	byID  map[string]*model.Session
	Reads int
}

func newMemSessions() *memSessions { return &memSessions{byID: map[string]*model.Session{}} }

func (m *memSessions) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.UUID] = &cp
	return nil
}

func (m *memSessions) GetByUUID(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	s, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memSessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
