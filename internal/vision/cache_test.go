package vision

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
)

var sample = Recognition{
	DeviceType: model.DeviceTypeCamera,
	Brand:      "Sony",
	Model:      "A7 IV",
	Chemistry:  battery.ChemistryLiIon,
	Confidence: 75,
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", sample))
	got, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample, got)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Hour)

	_, found, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "abc", sample))
	assert.True(t, mr.Exists(redisKeyPrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+"abc"))

	got, found, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample, got)

	mr.FastForward(2 * time.Hour)
	_, found, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, _, err := NewRedisCache(client, time.Hour).Get(context.Background(), "abc")
	assert.Error(t, err)
}
