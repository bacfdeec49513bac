package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
)

// InMemoryClientStore is a client registry held in memory. It backs tests
// and single-process development setups seeded from a YAML file.
type InMemoryClientStore struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

// NewInMemoryClientStore creates a new InMemoryClientStore.
func NewInMemoryClientStore(clients ...*domain.Client) *InMemoryClientStore {
	s := &InMemoryClientStore{
		clients: make(map[string]domain.Client),
	}
	for _, c := range clients {
		s.clients[c.ID] = *c
	}
	return s
}

// FindActiveClient implements domain.ClientRepository.
func (s *InMemoryClientStore) FindActiveClient(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok || !c.IsActive {
		return nil, domain.ErrClientNotFound
	}
	return &c, nil
}

// UpsertClient implements domain.ClientRepository.
func (s *InMemoryClientStore) UpsertClient(_ context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.clients[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.clients[c.ID] = *c
	return nil
}

// InMemoryUserStore keeps user records in memory.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User // Keyed by user ID
}

// NewInMemoryUserStore creates a new InMemoryUserStore.
func NewInMemoryUserStore(users ...*domain.User) *InMemoryUserStore {
	s := &InMemoryUserStore{
		users: make(map[string]domain.User),
	}
	for _, u := range users {
		s.users[u.ID] = *u
	}
	return s
}

// GetUserByID implements domain.UserRepository.
func (s *InMemoryUserStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// FindUserByRefreshToken implements domain.UserRepository.
func (s *InMemoryUserStore) FindUserByRefreshToken(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.HasValidRefreshToken(tokenHash, now) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// SetRefreshToken implements domain.UserRepository.
func (s *InMemoryUserStore) SetRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	setRefreshToken(&u, tokenHash, expiresAt)
	s.users[userID] = u
	return nil
}

// RotateRefreshToken implements domain.UserRepository.
func (s *InMemoryUserStore) RotateRefreshToken(_ context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.RefreshTokenHash != oldHash {
		return domain.ErrRefreshTokenMismatch
	}
	setRefreshToken(&u, newHash, expiresAt)
	s.users[userID] = u
	return nil
}

// ClearRefreshToken implements domain.UserRepository.
func (s *InMemoryUserStore) ClearRefreshToken(_ context.Context, userID, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != tokenHash {
		return false, nil
	}
	u.RefreshTokenHash = ""
	u.RefreshTokenExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return true, nil
}

func setRefreshToken(u *domain.User, tokenHash string, expiresAt time.Time) {
	exp := expiresAt
	u.RefreshTokenHash = tokenHash
	u.RefreshTokenExpiresAt = &exp
	u.UpdatedAt = time.Now().UTC()
}

var (
	_ domain.ClientRepository = (*InMemoryClientStore)(nil)
	_ domain.UserRepository   = (*InMemoryUserStore)(nil)
)
