package updater

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

func newTestUpdater(t *testing.T) (*DisplayUpdater, *service.TeamService, *store.MemoryPresenceStore, *store.MemoryTagStore) {
	t.Helper()
	logger := zap.NewNop()

	presence := store.NewMemoryPresenceStore()
	tags := store.NewMemoryTagStore()
	sync := display.NewSynchronizer(tags, logger)
	teams := service.NewTeamService(store.NewMemoryWorldStore(), sync, logger)

	cfg := &config.TeamServiceConfig{DisplayRefreshInterval: time.Minute}
	du := NewDisplayUpdater(cfg, teams, presence, sync, logger)
	t.Cleanup(du.Stop)
	return du, teams, presence, tags
}

func TestRefreshRepairsDriftedMarkers(t *testing.T) {
	du, teams, presence, tags := newTestUpdater(t)
	ctx := context.Background()

	require.NoError(t, teams.CreateTeam(ctx, "Red"))
	_, err := teams.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	require.NoError(t, presence.SetOnline(ctx, "p1", "Alice"))

	// Simulate marker drift: the applied tag no longer matches the team.
	require.NoError(t, tags.RemoveTag(ctx, "p1", "team_Red"))
	require.NoError(t, tags.AddTag(ctx, "p1", "team_Stale"))

	du.performRefresh()

	got, err := tags.Tags(ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"team_Red"}, got)
}

func TestRefreshSkipsOfflinePlayers(t *testing.T) {
	du, teams, _, tags := newTestUpdater(t)
	ctx := context.Background()

	require.NoError(t, teams.CreateTeam(ctx, "Red"))
	_, err := teams.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	require.NoError(t, tags.RemoveTag(ctx, "p1", "team_Red"))

	du.performRefresh()

	got, err := tags.Tags(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, got, "offline players are not touched")
}

func TestRefreshWithoutRegistry(t *testing.T) {
	du, _, presence, _ := newTestUpdater(t)
	du.teams = nil
	require.NoError(t, presence.SetOnline(context.Background(), "p1", "Alice"))

	// Must not panic while the registry is unavailable.
	du.performRefresh()
}
