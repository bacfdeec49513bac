package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCode(code string, ttl time.Duration) *domain.AuthCode {
	now := time.Now()
	return &domain.AuthCode{
		Code:                code,
		ClientID:            "C1",
		UserID:              "user-1",
		RedirectURI:         "https://app/cb",
		Scope:               []string{"read"},
		CodeChallenge:       "challenge",
		CodeChallengeMethod: domain.CodeChallengeMethodS256,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}
}

func TestMemoryAuthCodeStore_SaveGetDelete(t *testing.T) {
	store := NewMemoryAuthCodeStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveAuthCode(ctx, newTestCode("code-1", time.Minute)))
	assert.ErrorIs(t, store.SaveAuthCode(ctx, newTestCode("code-1", time.Minute)), domain.ErrAuthCodeExists)

	got, err := store.GetAuthCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, []string{"read"}, got.Scope)

	require.NoError(t, store.DeleteAuthCode(ctx, "code-1"))
	require.NoError(t, store.DeleteAuthCode(ctx, "code-1"), "delete must be idempotent")

	_, err = store.GetAuthCode(ctx, "code-1")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestMemoryAuthCodeStore_ExpiredIsUnobservable(t *testing.T) {
	store := NewMemoryAuthCodeStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveAuthCode(ctx, newTestCode("short", 20*time.Millisecond)))
	time.Sleep(60 * time.Millisecond)

	_, err := store.GetAuthCode(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)

	_, err = store.ConsumeAuthCode(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
	assert.Zero(t, store.Count())
}

func TestMemoryAuthCodeStore_RejectsExpiredSave(t *testing.T) {
	store := NewMemoryAuthCodeStore()
	defer store.Close()
	ctx := context.Background()

	err := store.SaveAuthCode(ctx, newTestCode("stale", -time.Second))
	assert.ErrorIs(t, err, domain.ErrAuthCodeExpired)
	assert.Zero(t, store.Count())
}

func TestMemoryAuthCodeStore_ConsumeOnce(t *testing.T) {
	store := NewMemoryAuthCodeStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveAuthCode(ctx, newTestCode("once", time.Minute)))

	got, err := store.ConsumeAuthCode(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, "once", got.Code)

	_, err = store.ConsumeAuthCode(ctx, "once")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestMemoryAuthCodeStore_ConcurrentConsume(t *testing.T) {
	store := NewMemoryAuthCodeStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveAuthCode(ctx, newTestCode("raced", time.Minute)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConsumeAuthCode(ctx, "raced"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}
