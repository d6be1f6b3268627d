// team/store/online_store.go
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redisu "github.com/mcforge/team-service/shared/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PresenceStore tracks which players are currently connected to the world and
// their last-known display names.
type PresenceStore interface {
	SetOnline(ctx context.Context, playerUUID, username string) error
	Refresh(ctx context.Context, playerUUID string) error
	SetOffline(ctx context.Context, playerUUID string) error
	IsOnline(ctx context.Context, playerUUID string) (bool, error)
	// OnlinePlayers returns player UUID -> display name for every connected player.
	OnlinePlayers(ctx context.Context) (map[string]string, error)
}

// RedisPresenceStore manages player presence in Redis. It uses Redis's TTL
// feature to automatically expire presence keys after a defined duration,
// effectively acting as a heartbeat mechanism.
type RedisPresenceStore struct {
	client    *redis.ClusterClient
	onlineTTL time.Duration // The duration after which a presence key expires if not refreshed.
	logger    *zap.Logger
}

// NewRedisPresenceStore creates and returns a new RedisPresenceStore instance.
// It requires a connected Redis Cluster client and a time-to-live duration for
// presence keys.
func NewRedisPresenceStore(client *redis.ClusterClient, onlineTTL time.Duration, logger *zap.Logger) *RedisPresenceStore {
	return &RedisPresenceStore{
		client:    client,
		onlineTTL: onlineTTL,
		logger:    logger,
	}
}

// SetOnline marks a player as online and stores their display name as the key
// value. The key automatically expires after the configured TTL unless refreshed.
func (ps *RedisPresenceStore) SetOnline(ctx context.Context, playerUUID, username string) error {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	if err := ps.client.Set(ctx, key, username, ps.onlineTTL).Err(); err != nil {
		return fmt.Errorf("failed to set player %s presence in Redis: %w", playerUUID, err)
	}
	ps.logger.Debug("player marked online",
		zap.String("uuid", playerUUID),
		zap.String("username", username),
		zap.Duration("ttl", ps.onlineTTL))
	return nil
}

// Refresh extends the TTL for a player's presence key. This acts as a
// heartbeat to keep a player marked as online.
func (ps *RedisPresenceStore) Refresh(ctx context.Context, playerUUID string) error {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	success, err := ps.client.Expire(ctx, key, ps.onlineTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh presence TTL for player %s in Redis: %w", playerUUID, err)
	}
	if !success {
		// Expire returns false when the key does not exist (already expired or never set).
		return fmt.Errorf("could not refresh presence for player %s: %w", playerUUID, redisu.ErrKeyNotFound)
	}
	return nil
}

// SetOffline explicitly deletes a player's presence key. Called when a player
// disconnects.
func (ps *RedisPresenceStore) SetOffline(ctx context.Context, playerUUID string) error {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	deletedCount, err := ps.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to remove presence key for player %s from Redis: %w", playerUUID, err)
	}
	if deletedCount == 0 {
		ps.logger.Debug("player was not marked online on disconnect", zap.String("uuid", playerUUID))
	}
	return nil
}

// IsOnline checks if a player's presence key currently exists.
func (ps *RedisPresenceStore) IsOnline(ctx context.Context, playerUUID string) (bool, error) {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	exists, err := ps.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence for player %s in Redis: %w", playerUUID, err)
	}
	return exists == 1, nil
}

// OnlinePlayers retrieves every currently connected player and their display
// name. In a Redis Cluster this involves iterating over all master nodes.
func (ps *RedisPresenceStore) OnlinePlayers(ctx context.Context) (map[string]string, error) {
	online := make(map[string]string)
	var mu sync.Mutex

	err := ps.client.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
		if client == nil {
			ps.logger.Warn("ForEachMaster provided a nil client, skipping node")
			return nil
		}

		iter := client.Scan(ctx, 0, fmt.Sprintf(redisu.OnlineKeyPrefix, "*"), 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()

			// Extract the player UUID from the key: "online:{uuid}:" -> "uuid".
			startIdx := strings.Index(key, "{")
			endIdx := strings.Index(key, "}")
			if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
				ps.logger.Warn("could not parse UUID from malformed presence key", zap.String("key", key))
				continue
			}
			playerUUID := key[startIdx+1 : endIdx]

			username, err := client.Get(ctx, key).Result()
			if err != nil {
				ps.logger.Warn("failed to get display name for presence key",
					zap.String("key", key), zap.Error(err))
				continue
			}

			mu.Lock()
			online[playerUUID] = username
			mu.Unlock()
		}
		return iter.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("error during scan of online players across Redis masters: %w", err)
	}
	return online, nil
}

var _ PresenceStore = (*RedisPresenceStore)(nil)
