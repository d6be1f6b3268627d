package saver

import (
	"context"
	"testing"
	"time"

	"github.com/mcforge/team-service/shared/config"
	"github.com/mcforge/team-service/team/display"
	"github.com/mcforge/team-service/team/service"
	"github.com/mcforge/team-service/team/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPerformSavePersistsDirtyRegistry(t *testing.T) {
	logger := zap.NewNop()
	world := store.NewMemoryWorldStore()
	sync := display.NewSynchronizer(store.NewMemoryTagStore(), logger)
	teams := service.NewTeamService(world, sync, logger)

	cfg := &config.TeamServiceConfig{AutoSaveInterval: time.Minute}
	as := NewAutoSaver(cfg, teams, logger)
	t.Cleanup(as.Stop)

	ctx := context.Background()
	require.NoError(t, teams.CreateTeam(ctx, "Red"))
	require.True(t, teams.Dirty())

	as.performSave()

	assert.False(t, teams.Dirty())
	_, ok, err := world.Get(ctx, store.TeamsKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPerformSaveWithoutRegistry(t *testing.T) {
	cfg := &config.TeamServiceConfig{AutoSaveInterval: time.Minute}
	as := NewAutoSaver(cfg, nil, zap.NewNop())
	t.Cleanup(as.Stop)

	// Must not panic while the registry is unavailable.
	as.performSave()
}
