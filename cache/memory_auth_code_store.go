package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/crypto"
)

// MemoryAuthCodeStore implements domain.AuthCodeRepository using ttlcache.
// Items carry their own TTL, so expired codes are invisible to reads and
// removed by the cache's janitor.
type MemoryAuthCodeStore struct {
	// mu serializes check-then-act sequences (save on a fresh key, consume).
	mu    sync.Mutex
	cache *ttlcache.Cache[string, domain.AuthCode]
}

// NewMemoryAuthCodeStore creates a new in-memory code store with automatic cleanup.
func NewMemoryAuthCodeStore() *MemoryAuthCodeStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, domain.AuthCode](domain.AuthCodeTTL),
		ttlcache.WithDisableTouchOnHit[string, domain.AuthCode](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryAuthCodeStore{
		cache: cache,
	}
}

// SaveAuthCode implements domain.AuthCodeRepository.
func (s *MemoryAuthCodeStore) SaveAuthCode(_ context.Context, code *domain.AuthCode) error {
	key := crypto.HashToken(code.Code)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(key) != nil {
		return domain.ErrAuthCodeExists
	}

	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrAuthCodeExpired
	}

	s.cache.Set(key, *code, ttl)

	return nil
}

// GetAuthCode implements domain.AuthCodeRepository.
func (s *MemoryAuthCodeStore) GetAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	item := s.cache.Get(crypto.HashToken(code))
	if item == nil {
		return nil, domain.ErrAuthCodeNotFound
	}

	authCode := item.Value()
	if authCode.IsExpired(time.Now()) {
		return nil, domain.ErrAuthCodeNotFound
	}

	return &authCode, nil
}

// DeleteAuthCode implements domain.AuthCodeRepository.
func (s *MemoryAuthCodeStore) DeleteAuthCode(_ context.Context, code string) error {
	s.cache.Delete(crypto.HashToken(code))

	return nil
}

// ConsumeAuthCode implements domain.AuthCodeRepository.
func (s *MemoryAuthCodeStore) ConsumeAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	key := crypto.HashToken(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	// Delete unconditionally so an expired leftover is purged as well.
	s.cache.Delete(key)

	if item == nil {
		return nil, domain.ErrAuthCodeNotFound
	}

	authCode := item.Value()

	return &authCode, nil
}

// DeleteExpiredAuthCodes implements domain.AuthCodeRepository.
func (s *MemoryAuthCodeStore) DeleteExpiredAuthCodes(_ context.Context) (int64, error) {
	before := s.cache.Len()
	s.cache.DeleteExpired()

	removed := before - s.cache.Len()
	if removed < 0 {
		removed = 0
	}

	return int64(removed), nil
}

// Count counts the number of codes in the cache.
func (s *MemoryAuthCodeStore) Count() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryAuthCodeStore) Close() error {
	s.cache.Stop()

	return nil
}

var _ domain.AuthCodeRepository = (*MemoryAuthCodeStore)(nil)
