// team/store/tag_store.go
package store

import (
	"context"
	"fmt"

	redisu "github.com/mcforge/team-service/shared/redis"
	"github.com/redis/go-redis/v9"
)

// TagStore holds the persistent marker tags applied to players: the
// team-derived display markers ("team_<name>") and administrative markers
// such as "admin".
type TagStore interface {
	AddTag(ctx context.Context, playerUUID, tag string) error
	RemoveTag(ctx context.Context, playerUUID, tag string) error
	HasTag(ctx context.Context, playerUUID, tag string) (bool, error)
	Tags(ctx context.Context, playerUUID string) ([]string, error)
}

// RedisTagStore implements TagStore as one Redis set per player.
type RedisTagStore struct {
	client *redis.ClusterClient
}

// NewRedisTagStore creates a new RedisTagStore instance.
func NewRedisTagStore(client *redis.ClusterClient) *RedisTagStore {
	return &RedisTagStore{client: client}
}

func (ts *RedisTagStore) AddTag(ctx context.Context, playerUUID, tag string) error {
	key := fmt.Sprintf(redisu.TagsKeyPrefix, playerUUID)
	if err := ts.client.SAdd(ctx, key, tag).Err(); err != nil {
		return fmt.Errorf("failed to add tag %s for player %s in Redis: %w", tag, playerUUID, err)
	}
	return nil
}

func (ts *RedisTagStore) RemoveTag(ctx context.Context, playerUUID, tag string) error {
	key := fmt.Sprintf(redisu.TagsKeyPrefix, playerUUID)
	if err := ts.client.SRem(ctx, key, tag).Err(); err != nil {
		return fmt.Errorf("failed to remove tag %s for player %s in Redis: %w", tag, playerUUID, err)
	}
	return nil
}

func (ts *RedisTagStore) HasTag(ctx context.Context, playerUUID, tag string) (bool, error) {
	key := fmt.Sprintf(redisu.TagsKeyPrefix, playerUUID)
	has, err := ts.client.SIsMember(ctx, key, tag).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s for player %s in Redis: %w", tag, playerUUID, err)
	}
	return has, nil
}

func (ts *RedisTagStore) Tags(ctx context.Context, playerUUID string) ([]string, error) {
	key := fmt.Sprintf(redisu.TagsKeyPrefix, playerUUID)
	tags, err := ts.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for player %s from Redis: %w", playerUUID, err)
	}
	return tags, nil
}

var _ TagStore = (*RedisTagStore)(nil)
