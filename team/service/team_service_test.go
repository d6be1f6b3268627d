package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mcforge/team-service/team/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// syncCall records one display sync request.
type syncCall struct {
	UUID string
	Team string
}

// syncRecorder is a DisplaySync that remembers every call.
type syncRecorder struct {
	mu    sync.Mutex
	calls []syncCall
}

func (sr *syncRecorder) SyncPlayer(ctx context.Context, playerUUID, teamName string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.calls = append(sr.calls, syncCall{UUID: playerUUID, Team: teamName})
}

func (sr *syncRecorder) last() (syncCall, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if len(sr.calls) == 0 {
		return syncCall{}, false
	}
	return sr.calls[len(sr.calls)-1], true
}

func newTestService(t *testing.T) (*TeamService, *store.MemoryWorldStore, *syncRecorder) {
	t.Helper()
	world := store.NewMemoryWorldStore()
	rec := &syncRecorder{}
	return NewTeamService(world, rec, zap.NewNop()), world, rec
}

// assertIndexConsistent verifies that the reverse index and the team member
// maps agree in both directions.
func assertIndexConsistent(t *testing.T, ts *TeamService) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for playerUUID, teamName := range ts.playerTeam {
		team, ok := ts.teams[teamName]
		require.True(t, ok, "player %s indexed to missing team %s", playerUUID, teamName)
		_, member := team.Members[playerUUID]
		assert.True(t, member, "player %s indexed to team %s but not a member", playerUUID, teamName)
	}
	for teamName, team := range ts.teams {
		for playerUUID := range team.Members {
			assert.Equal(t, teamName, ts.playerTeam[playerUUID],
				"member %s of team %s has a stale index entry", playerUUID, teamName)
		}
		if len(team.Members) > 0 {
			_, leaderIsMember := team.Members[team.Leader]
			assert.True(t, leaderIsMember, "leader of %s is not a member", teamName)
		}
	}
}

func TestCreateTeamValidation(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, ts.CreateTeam(ctx, ""), ErrNameEmpty)
	assert.ErrorIs(t, ts.CreateTeam(ctx, "   "), ErrNameEmpty)
	assert.ErrorIs(t, ts.CreateTeam(ctx, strings.Repeat("a", 17)), ErrNameTooLong)
	assert.NoError(t, ts.CreateTeam(ctx, strings.Repeat("a", 16)))
}

func TestCreateTeamDuplicate(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	assert.ErrorIs(t, ts.CreateTeam(ctx, "Red"), ErrTeamExists)

	// Names are case-sensitive, so this is a distinct team.
	assert.NoError(t, ts.CreateTeam(ctx, "red"))
}

func TestJoinTeamFirstMemberLeads(t *testing.T) {
	ts, _, rec := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))

	team, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	assert.Equal(t, "p1", team.Leader)

	team, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)
	assert.Equal(t, "p1", team.Leader, "leadership must not move on later joins")
	assert.Len(t, team.Members, 2)

	call, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, syncCall{UUID: "p2", Team: "Red"}, call)
}

func TestJoinTeamErrors(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Nope")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	require.NoError(t, ts.CreateTeam(ctx, "Blue"))
	_, err = ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)

	_, err = ts.JoinTeam(ctx, "p1", "Alice", "Blue")
	assert.ErrorIs(t, err, ErrAlreadyOnTeam)
	assert.Equal(t, "Red", ts.TeamNameOf("p1"))
}

func TestLeaveTransfersLeadership(t *testing.T) {
	ts, _, rec := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)

	left, err := ts.LeaveTeam(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Red", left)

	team := ts.GetPlayerTeam("p2")
	require.NotNil(t, team)
	assert.Equal(t, "p2", team.Leader)
	assert.Equal(t, "", ts.TeamNameOf("p1"))

	call, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, syncCall{UUID: "p1", Team: ""}, call)
}

func TestLeaveLastMemberDeletesTeam(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)

	_, err = ts.LeaveTeam(ctx, "p1")
	require.NoError(t, err)

	assert.Empty(t, ts.Teams())
	assert.Empty(t, ts.GetMembers("Red"))

	// The name is free again.
	assert.NoError(t, ts.CreateTeam(ctx, "Red"))
}

func TestLeaveNotOnTeam(t *testing.T) {
	ts, _, _ := newTestService(t)

	_, err := ts.LeaveTeam(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotOnTeam)
}

func TestKickFromTeam(t *testing.T) {
	ts, _, rec := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)

	require.NoError(t, ts.KickFromTeam(ctx, "p2", "Red"))
	assert.Equal(t, "", ts.TeamNameOf("p2"))
	assert.Equal(t, []string{"p1"}, ts.GetMembers("Red"))

	// The kicked player's marker is reset too.
	call, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, syncCall{UUID: "p2", Team: ""}, call)

	assert.ErrorIs(t, ts.KickFromTeam(ctx, "p2", "Red"), ErrNotAMember)
	assert.ErrorIs(t, ts.KickFromTeam(ctx, "p1", "Nope"), ErrTeamNotFound)
}

func TestDeleteTeam(t *testing.T) {
	ts, _, rec := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)

	require.NoError(t, ts.DeleteTeam(ctx, "Red"))
	assert.Empty(t, ts.Teams())
	assert.Equal(t, "", ts.TeamNameOf("p1"))
	assert.Equal(t, "", ts.TeamNameOf("p2"))

	cleared := map[string]bool{}
	rec.mu.Lock()
	for _, call := range rec.calls {
		if call.Team == "" {
			cleared[call.UUID] = true
		}
	}
	rec.mu.Unlock()
	assert.True(t, cleared["p1"])
	assert.True(t, cleared["p2"])

	assert.ErrorIs(t, ts.DeleteTeam(ctx, "Red"), ErrTeamNotFound)
}

func TestSameTeam(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	require.NoError(t, ts.CreateTeam(ctx, "Blue"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p3", "Carol", "Blue")
	require.NoError(t, err)

	assert.True(t, ts.SameTeam("p1", "p2"))
	assert.False(t, ts.SameTeam("p1", "p3"))
	assert.False(t, ts.SameTeam("p1", "ghost"))
	assert.False(t, ts.SameTeam("ghost", "spook"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ts, world, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	_, err = ts.JoinTeam(ctx, "p2", "Bob", "Red")
	require.NoError(t, err)
	require.NoError(t, ts.CreateTeam(ctx, "Blue"))
	_, err = ts.JoinTeam(ctx, "p3", "Carol", "Blue")
	require.NoError(t, err)

	require.NoError(t, ts.Save(ctx))
	assert.False(t, ts.Dirty())

	restored := NewTeamService(world, &syncRecorder{}, zap.NewNop())
	result := restored.Load(ctx)
	require.Equal(t, Loaded, result.Status)
	assert.Equal(t, 2, result.Teams)

	team := restored.GetPlayerTeam("p1")
	require.NotNil(t, team)
	assert.Equal(t, "Red", team.Name)
	assert.Equal(t, "p1", team.Leader)
	assert.Equal(t, "Alice", team.Members["p1"])
	assert.Equal(t, "Bob", team.Members["p2"])
	assert.Equal(t, "Blue", restored.TeamNameOf("p3"))
	assert.True(t, restored.SameTeam("p1", "p2"))
	assert.False(t, restored.Dirty())
}

func TestSaveNoopWhenClean(t *testing.T) {
	ts, world, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.Save(ctx))

	_, ok, err := world.Get(ctx, store.TeamsKey)
	require.NoError(t, err)
	assert.False(t, ok, "a clean registry must not write the snapshot")
}

func TestLoadNoPriorData(t *testing.T) {
	ts, _, _ := newTestService(t)

	result := ts.Load(context.Background())
	assert.Equal(t, NoPriorData, result.Status)
	assert.Empty(t, ts.Teams())
}

func TestLoadCorruptData(t *testing.T) {
	ts, world, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, world.Set(ctx, store.TeamsKey, "{definitely not json"))

	result := ts.Load(ctx)
	assert.Equal(t, CorruptData, result.Status)
	assert.NotEmpty(t, result.Detail)
	assert.Empty(t, ts.Teams())

	// The registry keeps working after a corrupt load.
	assert.NoError(t, ts.CreateTeam(ctx, "Red"))
}

func TestClearAll(t *testing.T) {
	ts, world, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	require.NoError(t, ts.Save(ctx))

	require.NoError(t, ts.ClearAll(ctx))
	assert.Empty(t, ts.Teams())
	assert.Equal(t, "", ts.TeamNameOf("p1"))
	assert.False(t, ts.Dirty())

	_, ok, err := world.Get(ctx, store.TeamsKey)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = world.Get(ctx, store.PlayersKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedTeamScenario(t *testing.T) {
	ts, _, _ := newTestService(t)
	is := NewInviteService(ts, 30*time.Second, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	_, err := ts.JoinTeam(ctx, "a", "A", "Red")
	require.NoError(t, err)
	assertIndexConsistent(t, ts)
	assert.Equal(t, "a", ts.GetPlayerTeam("a").Leader)

	is.Invite("Red", "b")
	team, err := is.Accept(ctx, "b", "B")
	require.NoError(t, err)
	assert.Len(t, team.Members, 2)
	assertIndexConsistent(t, ts)

	require.NoError(t, ts.KickFromTeam(ctx, "b", "Red"))
	assertIndexConsistent(t, ts)
	assert.Equal(t, []string{"a"}, ts.GetMembers("Red"))
	assert.Equal(t, "a", ts.GetPlayerTeam("a").Leader)

	_, err = ts.LeaveTeam(ctx, "a")
	require.NoError(t, err)
	assertIndexConsistent(t, ts)
	assert.Nil(t, ts.GetPlayerTeam("a"))
	assert.Empty(t, ts.Teams())
}

func TestDirtyFlagLifecycle(t *testing.T) {
	ts, _, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, ts.Dirty())
	require.NoError(t, ts.CreateTeam(ctx, "Red"))
	assert.True(t, ts.Dirty())
	require.NoError(t, ts.Save(ctx))
	assert.False(t, ts.Dirty())

	_, err := ts.JoinTeam(ctx, "p1", "Alice", "Red")
	require.NoError(t, err)
	assert.True(t, ts.Dirty())

	// Leave persists immediately.
	_, err = ts.LeaveTeam(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ts.Dirty())
}
