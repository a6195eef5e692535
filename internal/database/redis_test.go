package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatemap/internal/models"
)

func TestRedisRequestCacheFallsThroughWhenUnreachable(t *testing.T) {
	store := newTestStore(t)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedisRequestCache(store, client, "test", nil)
	ctx := context.Background()

	req := &models.CachedRequest{
		Hash:        "h1",
		Operation:   models.OpAutocomplete,
		Tier:        models.TierNormal,
		RequestedAt: time.Now(),
		Options:     json.RawMessage(`{"input":"sun"}`),
		Result:      json.RawMessage(`{"suggestions":[]}`),
	}
	require.NoError(t, cache.InsertRequest(ctx, req))
	assert.ErrorIs(t, cache.InsertRequest(ctx, req), ErrDuplicate)

	got, err := cache.FindRequest(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.TierNormal, got.Tier)

	missing, err := cache.FindRequest(ctx, "h2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Non-request methods go straight to the wrapped store
	require.NoError(t, cache.InsertPlace(ctx, &models.Place{ID: "p1"}))
	place, err := cache.GetPlace(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, place)

	assert.Equal(t, "test:h1", cache.key("h1"))
}
