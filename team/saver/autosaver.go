// team/saver/autosaver.go
package saver

import (
	"context"
	"time"

	"github.com/mcforge/team-service/shared/config"
	"github.com/mcforge/team-service/team/service"
	"go.uber.org/zap"
)

// AutoSaver periodically persists the team registry. The registry's dirty
// flag makes the save a no-op when nothing changed; mutating call paths that
// already saved immediately simply leave nothing to do here.
type AutoSaver struct {
	config *config.TeamServiceConfig
	teams  *service.TeamService
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAutoSaver creates a new AutoSaver instance.
func NewAutoSaver(cfg *config.TeamServiceConfig, teams *service.TeamService, logger *zap.Logger) *AutoSaver {
	ctx, cancel := context.WithCancel(context.Background())
	return &AutoSaver{
		config: cfg,
		teams:  teams,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initiates the save loop. This should be run in a goroutine.
func (as *AutoSaver) Start() {
	as.logger.Info("auto saver starting", zap.Duration("interval", as.config.AutoSaveInterval))
	ticker := time.NewTicker(as.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-as.ctx.Done():
			as.logger.Info("auto saver shutting down")
			return
		case <-ticker.C:
			as.performSave()
		}
	}
}

// Stop gracefully stops the save loop.
func (as *AutoSaver) Stop() {
	as.cancel()
}

func (as *AutoSaver) performSave() {
	if as.teams == nil {
		// Registry not initialized yet; nothing to persist.
		return
	}
	if err := as.teams.Save(as.ctx); err != nil {
		as.logger.Error("periodic team save failed", zap.Error(err))
	}
}
