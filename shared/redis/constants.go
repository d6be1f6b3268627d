// shared/redis/constants.go
package redis

import "fmt"

const (
	// World-scoped snapshot entries for the team registry.
	TeamsKey   = "team:teams"   // JSON array of team snapshots
	PlayersKey = "team:players" // JSON array of [playerUUID, teamName] pairs

	// Per-player keys.
	OnlineKeyPrefix = "online:{%s}:" // Key for player presence: online:{uuid}
	TagsKeyPrefix   = "tags:{%s}:"   // Set of marker tags applied to a player: tags:{uuid}
)

// ErrKeyNotFound reports a missing Redis key where the caller distinguishes
// absence from failure.
var ErrKeyNotFound = fmt.Errorf("redis key not found")
