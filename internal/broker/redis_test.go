package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Shroud/testing/suite"
)

func TestRedisRegistry(t *testing.T) {
	ctx, s := suite.New(t)
	reg := NewRedisRegistry(s.Redis, time.Minute)

	t.Run("reserve is exclusive", func(t *testing.T) {
		// Given
		require.NoError(t, reg.Reserve(ctx, "cozy-fox-ramen"))

		// When
		err := reg.Reserve(ctx, "cozy-fox-ramen")

		// Then
		require.ErrorIs(t, err, ErrPeerIDTaken)
		ttl, err := s.Redis.TTL(ctx, "peer:cozy-fox-ramen").Result()
		require.NoError(t, err)
		assert.True(t, ttl > 0, "ttl %s", ttl)
	})

	t.Run("refresh extends the reservation", func(t *testing.T) {
		require.NoError(t, reg.Reserve(ctx, "tiny-otter-taco"))
		require.NoError(t, s.Redis.Expire(ctx, "peer:tiny-otter-taco", 5*time.Second).Err())

		require.NoError(t, reg.Refresh(ctx, []string{"tiny-otter-taco", "never-reserved"}))

		ttl, err := s.Redis.TTL(ctx, "peer:tiny-otter-taco").Result()
		require.NoError(t, err)
		assert.True(t, ttl > 30*time.Second, "ttl %s", ttl)
	})

	t.Run("release frees the id", func(t *testing.T) {
		require.NoError(t, reg.Reserve(ctx, "jolly-whale-soup"))

		require.NoError(t, reg.Release(ctx, "jolly-whale-soup"))

		assert.NoError(t, reg.Reserve(ctx, "jolly-whale-soup"))
	})

	t.Run("shared between hubs", func(t *testing.T) {
		other := NewRedisRegistry(s.Redis, time.Minute)
		require.NoError(t, reg.Reserve(ctx, "brave-panda-curry"))

		assert.ErrorIs(t, other.Reserve(ctx, "brave-panda-curry"), ErrPeerIDTaken)
	})
}
