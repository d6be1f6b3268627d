// team/display/resolver.go
package display

import (
	"context"
	"time"

	"github.com/mcforge/team-service/team/store"
	"go.uber.org/zap"
)

// TeamLookup resolves a player's current team name; "" when on no team.
type TeamLookup interface {
	TeamNameOf(playerUUID string) string
}

// Resolver handles the connect-time display sync. The connect event can fire
// before the player's presence key is queryable, so the marker is applied only
// once the player resolves: a bounded, non-blocking retry loop polls presence
// at a fixed interval and gives up after a capped number of attempts.
type Resolver struct {
	presence      store.PresenceStore
	sync          *Synchronizer
	teams         TeamLookup
	retryInterval time.Duration
	maxAttempts   int
	logger        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewResolver creates a new Resolver instance.
func NewResolver(presence store.PresenceStore, sync *Synchronizer, teams TeamLookup, retryInterval time.Duration, maxAttempts int, logger *zap.Logger) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		presence:      presence,
		sync:          sync,
		teams:         teams,
		retryInterval: retryInterval,
		maxAttempts:   maxAttempts,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// OnConnect schedules the resolve loop for a just-connected player and
// returns immediately.
func (r *Resolver) OnConnect(playerUUID string) {
	go r.resolve(playerUUID)
}

// Stop cancels any in-flight resolve loops.
func (r *Resolver) Stop() {
	r.cancel()
}

func (r *Resolver) resolve(playerUUID string) {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		online, err := r.presence.IsOnline(r.ctx, playerUUID)
		if err != nil {
			r.logger.Warn("presence check failed while resolving player",
				zap.String("uuid", playerUUID), zap.Int("attempt", attempt), zap.Error(err))
		} else if online {
			r.logger.Debug("player resolved",
				zap.String("uuid", playerUUID), zap.Int("attempt", attempt))
			r.sync.SyncPlayer(r.ctx, playerUUID, r.teams.TeamNameOf(playerUUID))
			return
		}

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}

	r.logger.Warn("player could not be resolved, display sync skipped",
		zap.String("uuid", playerUUID), zap.Int("max_attempts", r.maxAttempts))
}
