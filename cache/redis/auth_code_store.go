package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// AuthCodeStore implements domain.AuthCodeRepository using Redis. Codes are
// stored as JSON under a hashed key with a TTL matching their expiry, so
// Redis itself performs the expiry sweep.
type AuthCodeStore struct {
	client redis.UniversalClient
	prefix string // Optional prefix for keys
}

// NewAuthCodeStore creates a new [AuthCodeStore] instance
func NewAuthCodeStore(client redis.UniversalClient, prefix string) *AuthCodeStore {
	return &AuthCodeStore{
		client: client,
		prefix: prefix,
	}
}

// redisKey returns the Redis key for a given code. The raw code never
// appears in the keyspace.
func (r *AuthCodeStore) redisKey(code string) string {
	return fmt.Sprintf("%s:authcode:%s", r.prefix, crypto.HashToken(code))
}

// SaveAuthCode stores the code with SET NX so that a colliding value is
// reported instead of silently overwritten.
func (r *AuthCodeStore) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrAuthCodeExpired
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.redisKey(code.Code), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save authorization code in Redis: %w", err)
	}
	if !ok {
		return domain.ErrAuthCodeExists
	}

	log.Debug().Str("client_id", code.ClientID).Str("user_id", code.UserID).Msg("Authorization code saved")

	return nil
}

// GetAuthCode retrieves an unexpired code.
func (r *AuthCodeStore) GetAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	data, err := r.client.Get(ctx, r.redisKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrAuthCodeNotFound
		}
		return nil, fmt.Errorf("failed to get authorization code from Redis: %w", err)
	}

	authCode, err := decodeAuthCode(data)
	if err != nil {
		return nil, err
	}
	if authCode.IsExpired(time.Now()) {
		return nil, domain.ErrAuthCodeNotFound
	}

	return authCode, nil
}

// DeleteAuthCode removes a code from Redis.
func (r *AuthCodeStore) DeleteAuthCode(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, r.redisKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete authorization code from Redis: %w", err)
	}

	return nil
}

// ConsumeAuthCode reads and deletes the code with a single GETDEL.
func (r *AuthCodeStore) ConsumeAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	data, err := r.client.GetDel(ctx, r.redisKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrAuthCodeNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization code in Redis: %w", err)
	}

	return decodeAuthCode(data)
}

// DeleteExpiredAuthCodes is a no-op: keys carry their own TTL.
func (r *AuthCodeStore) DeleteExpiredAuthCodes(_ context.Context) (int64, error) {
	return 0, nil
}

// Ping checks connectivity, used by the health endpoint.
func (r *AuthCodeStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeAuthCode(data []byte) (*domain.AuthCode, error) {
	var authCode domain.AuthCode
	if err := json.Unmarshal(data, &authCode); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}

	return &authCode, nil
}

var _ domain.AuthCodeRepository = (*AuthCodeStore)(nil)
