package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testLines(userEmail string) []domain.CartLine {
	return []domain.CartLine{
		{
			ID:          "line-1",
			UserEmail:   userEmail,
			ProductID:   "prod-1",
			ProductName: "Tomatoes",
			Price:       25.0,
			Quantity:    2,
			VendorEmail: "vendor-a@farm.mx",
			AddedAt:     time.Now().UTC().Truncate(time.Millisecond),
		},
		{
			ID:          "line-2",
			UserEmail:   userEmail,
			ProductID:   "prod-2",
			ProductName: "Cheese",
			Price:       10.0,
			Quantity:    2,
			VendorEmail: "vendor-b@farm.mx",
			AddedAt:     time.Now().UTC().Truncate(time.Millisecond),
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	userEmail := "buyer@test.mx"
	lines := testLines(userEmail)

	payload, err := json.Marshal(lines)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey(userEmail), string(payload)))

	result, err := cache.Get(ctx, userEmail)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "line-1", result[0].ID)
	assert.Equal(t, 25.0, result[0].Price)
}

func TestGet_Miss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cache.Get(context.Background(), "nobody@test.mx")

	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptPayload(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("buyer@test.mx"), "not json"))

	_, err := cache.Get(context.Background(), "buyer@test.mx")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_RoundTrip(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	userEmail := "buyer@test.mx"
	lines := testLines(userEmail)

	require.NoError(t, cache.Set(ctx, userEmail, lines))

	result, err := cache.Get(ctx, userEmail)
	require.NoError(t, err)
	assert.Equal(t, lines, result)
}

func TestSet_AppliesTTLWithJitter(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userEmail := "buyer@test.mx"
	require.NoError(t, cache.Set(context.Background(), userEmail, testLines(userEmail)))

	ttl := mr.TTL(cacheKey(userEmail))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.LessOrEqual(t, ttl, 20*time.Minute)
}

func TestDelete_RemovesEntry(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	userEmail := "buyer@test.mx"
	require.NoError(t, cache.Set(ctx, userEmail, testLines(userEmail)))

	require.NoError(t, cache.Delete(ctx, userEmail))

	assert.False(t, mr.Exists(cacheKey(userEmail)))
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, cache.Delete(context.Background(), "nobody@test.mx"))
}
