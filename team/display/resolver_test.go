package display

import (
	"context"
	"testing"
	"time"

	"github.com/mcforge/team-service/team/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLookup map[string]string

func (sl staticLookup) TeamNameOf(playerUUID string) string {
	return sl[playerUUID]
}

func TestResolverSyncsOncePlayerResolves(t *testing.T) {
	presence := store.NewMemoryPresenceStore()
	tags := store.NewMemoryTagStore()
	sync := NewSynchronizer(tags, zap.NewNop())
	resolver := NewResolver(presence, sync, staticLookup{"p1": "Red"}, 5*time.Millisecond, 200, zap.NewNop())
	defer resolver.Stop()

	ctx := context.Background()
	resolver.OnConnect("p1")

	// The presence key shows up a few polls later.
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, presence.SetOnline(ctx, "p1", "Alice"))

	assert.Eventually(t, func() bool {
		has, err := tags.HasTag(ctx, "p1", "team_Red")
		return err == nil && has
	}, time.Second, 5*time.Millisecond)
}

func TestResolverGivesUp(t *testing.T) {
	presence := store.NewMemoryPresenceStore()
	tags := store.NewMemoryTagStore()
	sync := NewSynchronizer(tags, zap.NewNop())
	resolver := NewResolver(presence, sync, staticLookup{"p1": "Red"}, time.Millisecond, 3, zap.NewNop())
	defer resolver.Stop()

	resolver.OnConnect("p1")
	time.Sleep(50 * time.Millisecond)

	has, err := tags.HasTag(context.Background(), "p1", "team_Red")
	require.NoError(t, err)
	assert.False(t, has, "an unresolved player must not be synced")
}

func TestResolverStopCancelsLoops(t *testing.T) {
	presence := store.NewMemoryPresenceStore()
	tags := store.NewMemoryTagStore()
	sync := NewSynchronizer(tags, zap.NewNop())
	resolver := NewResolver(presence, sync, staticLookup{"p1": "Red"}, time.Millisecond, 1000, zap.NewNop())

	resolver.OnConnect("p1")
	resolver.Stop()
	time.Sleep(10 * time.Millisecond)

	// The player comes online only after the stop, so no sync may happen.
	require.NoError(t, presence.SetOnline(context.Background(), "p1", "Alice"))
	time.Sleep(20 * time.Millisecond)

	has, err := tags.HasTag(context.Background(), "p1", "team_Red")
	require.NoError(t, err)
	assert.False(t, has)
}
