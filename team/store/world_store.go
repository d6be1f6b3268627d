// team/store/world_store.go
package store

import (
	"context"
	"fmt"

	redisu "github.com/mcforge/team-service/shared/redis"
	"github.com/redis/go-redis/v9"
)

// WorldStore is the world-scoped key-value store the team registry persists
// its snapshot entries into. A missing key is reported as absent, not as an
// error.
type WorldStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisWorldStore implements WorldStore on top of Redis string keys.
type RedisWorldStore struct {
	client *redis.ClusterClient
}

// NewRedisWorldStore creates a new RedisWorldStore instance.
func NewRedisWorldStore(client *redis.ClusterClient) *RedisWorldStore {
	return &RedisWorldStore{client: client}
}

func (ws *RedisWorldStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := ws.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get world entry %s from Redis: %w", key, err)
	}
	return val, true, nil
}

func (ws *RedisWorldStore) Set(ctx context.Context, key, value string) error {
	if err := ws.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set world entry %s in Redis: %w", key, err)
	}
	return nil
}

func (ws *RedisWorldStore) Delete(ctx context.Context, keys ...string) error {
	// Cluster keys may live on different slots, so delete one at a time.
	for _, key := range keys {
		if err := ws.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete world entry %s from Redis: %w", key, err)
		}
	}
	return nil
}

var _ WorldStore = (*RedisWorldStore)(nil)

// Snapshot keys re-exported so callers do not need the redis package.
const (
	TeamsKey   = redisu.TeamsKey
	PlayersKey = redisu.PlayersKey
)
