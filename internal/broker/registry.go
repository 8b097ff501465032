package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrPeerIDTaken         = errors.New("peer id taken")
	ErrRegistryUnavailable = errors.New("peer registry unavailable")
)

// Registry reserves peer IDs. A broker sharing a Redis registry with other
// brokers never hands out an ID another one holds.
type Registry interface {
	// Reserve claims id, or returns ErrPeerIDTaken.
	Reserve(ctx context.Context, id string) error
	// Refresh extends the reservations of ids that are still connected.
	Refresh(ctx context.Context, ids []string) error
	Release(ctx context.Context, id string) error
}

// MemoryRegistry keeps reservations in process.
type MemoryRegistry struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{ids: make(map[string]struct{})}
}

func (r *MemoryRegistry) Reserve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return ErrPeerIDTaken
	}
	r.ids[id] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Refresh(context.Context, []string) error {
	return nil
}

func (r *MemoryRegistry) Release(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.ids, id)
	r.mu.Unlock()
	return nil
}

const peerKeyPrefix = "peer:"

// RedisRegistry stores reservations as expiring keys so IDs held by a
// crashed broker free themselves.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the server answers.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	return client, nil
}

func (that *RedisRegistry) Reserve(ctx context.Context, id string) error {
	ok, err := that.client.SetNX(ctx, peerKeyPrefix+id, 1, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: reserve %s: %w", ErrRegistryUnavailable, id, err)
	}
	if !ok {
		return ErrPeerIDTaken
	}
	return nil
}

func (that *RedisRegistry) Refresh(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := that.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Expire(ctx, peerKeyPrefix+id, that.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: refresh: %w", ErrRegistryUnavailable, err)
	}
	return nil
}

func (that *RedisRegistry) Release(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, peerKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrRegistryUnavailable, id, err)
	}
	return nil
}
