// team/updater/display_updater.go
package updater

import (
	"context"
	"time"

	"github.com/mcforge/team-service/shared/config"
	"github.com/mcforge/team-service/team/display"
	"github.com/mcforge/team-service/team/service"
	"github.com/mcforge/team-service/team/store"
	"go.uber.org/zap"
)

// DisplayUpdater periodically recomputes every online player's team marker
// from the registry, so nametag prefixes recover even when an individual sync
// was missed.
type DisplayUpdater struct {
	config   *config.TeamServiceConfig
	teams    *service.TeamService
	presence store.PresenceStore
	sync     *display.Synchronizer
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewDisplayUpdater creates a new DisplayUpdater instance.
func NewDisplayUpdater(
	cfg *config.TeamServiceConfig,
	teams *service.TeamService,
	presence store.PresenceStore,
	sync *display.Synchronizer,
	logger *zap.Logger,
) *DisplayUpdater {
	ctx, cancel := context.WithCancel(context.Background())
	return &DisplayUpdater{
		config:   cfg,
		teams:    teams,
		presence: presence,
		sync:     sync,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start initiates the refresh loop. This should be run in a goroutine.
func (du *DisplayUpdater) Start() {
	du.logger.Info("display updater starting", zap.Duration("interval", du.config.DisplayRefreshInterval))
	ticker := time.NewTicker(du.config.DisplayRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-du.ctx.Done():
			du.logger.Info("display updater shutting down")
			return
		case <-ticker.C:
			du.performRefresh()
		}
	}
}

// Stop gracefully stops the refresh loop.
func (du *DisplayUpdater) Stop() {
	du.cancel()
}

func (du *DisplayUpdater) performRefresh() {
	if du.teams == nil {
		// Registry not initialized yet; skip this tick.
		return
	}

	online, err := du.presence.OnlinePlayers(du.ctx)
	if err != nil {
		du.logger.Error("failed to list online players for display refresh", zap.Error(err))
		return
	}

	for playerUUID := range online {
		du.sync.SyncPlayer(du.ctx, playerUUID, du.teams.TeamNameOf(playerUUID))
	}
}
