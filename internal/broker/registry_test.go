package broker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	require.NoError(t, reg.Reserve(ctx, "alice-1"))
	require.ErrorIs(t, reg.Reserve(ctx, "alice-1"), ErrPeerIDTaken)
	require.NoError(t, reg.Refresh(ctx, []string{"alice-1"}))

	require.NoError(t, reg.Release(ctx, "alice-1"))
	assert.NoError(t, reg.Reserve(ctx, "alice-1"))
}

func TestPeerIDs(t *testing.T) {
	t.Run("generated ids are valid and memorable", func(t *testing.T) {
		for range 100 {
			id := newPeerID()

			require.True(t, ValidPeerID(id), id)
			words := strings.Split(id, "-")
			require.Len(t, words, 3, id)
			assert.Contains(t, adjectives, words[0])
		}
	})

	t.Run("generation skips taken ids", func(t *testing.T) {
		reg := &fullRegistry{MemoryRegistry: NewMemoryRegistry(), refusals: 3}

		id, err := generatePeerID(context.Background(), reg)

		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 4, reg.calls)
	})

	t.Run("generation gives up", func(t *testing.T) {
		reg := &fullRegistry{MemoryRegistry: NewMemoryRegistry(), refusals: maxIDAttempts}

		_, err := generatePeerID(context.Background(), reg)

		require.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		assert.True(t, ValidPeerID("abc"))
		assert.True(t, ValidPeerID("cozy-fox-ramen"))
		assert.False(t, ValidPeerID("ab"))
		assert.False(t, ValidPeerID("Upper-case"))
		assert.False(t, ValidPeerID("has space"))
		assert.False(t, ValidPeerID(strings.Repeat("a", 65)))
	})
}

// fullRegistry refuses the first few reservations.
type fullRegistry struct {
	*MemoryRegistry
	refusals int
	calls    int
}

func (r *fullRegistry) Reserve(ctx context.Context, id string) error {
	r.calls++
	if r.calls <= r.refusals {
		return ErrPeerIDTaken
	}
	return r.MemoryRegistry.Reserve(ctx, id)
}
