// team/service/team_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mcforge/team-service/shared/models"
	"github.com/mcforge/team-service/team/store"
	"go.uber.org/zap"
)

// MaxTeamNameLength bounds team names to what the scoreboard can render.
const MaxTeamNameLength = 16

// Custom Errors for clear communication to the API layer
var (
	ErrNameEmpty     = fmt.Errorf("team name is empty")
	ErrNameTooLong   = fmt.Errorf("team name is too long")
	ErrTeamExists    = fmt.Errorf("team already exists")
	ErrTeamNotFound  = fmt.Errorf("team not found")
	ErrAlreadyOnTeam = fmt.Errorf("player is already on a team")
	ErrNotOnTeam     = fmt.Errorf("player is not on any team")
	ErrNotAMember    = fmt.Errorf("player is not on the team")
)

// DisplaySync recomputes a player's team marker after a membership change.
// teamName is empty when the player no longer belongs to a team.
type DisplaySync interface {
	SyncPlayer(ctx context.Context, playerUUID, teamName string)
}

// LoadStatus reports which recovery path Load took.
type LoadStatus int

const (
	Loaded LoadStatus = iota
	NoPriorData
	CorruptData
)

// LoadResult carries the outcome of a snapshot load.
type LoadResult struct {
	Status LoadStatus
	Teams  int
	Detail string
}

// TeamService owns all team and membership state. The teams map and the
// playerTeam reverse index are mutated only behind the mutex and always
// within the same call, so the two can never desynchronize.
type TeamService struct {
	mu         sync.Mutex
	teams      map[string]*models.Team
	playerTeam map[string]string // player UUID -> team name
	dirty      bool

	world   store.WorldStore
	display DisplaySync
	logger  *zap.Logger
	now     func() time.Time
}

// NewTeamService creates an empty registry over the given world store.
// Call Load to populate it from the persisted snapshot.
func NewTeamService(world store.WorldStore, display DisplaySync, logger *zap.Logger) *TeamService {
	return &TeamService{
		teams:      make(map[string]*models.Team),
		playerTeam: make(map[string]string),
		world:      world,
		display:    display,
		logger:     logger,
		now:        time.Now,
	}
}

// Load reads the two snapshot entries and populates the in-memory maps.
// Read or parse failures are logged and leave the registry empty rather than
// propagating; the returned LoadResult tells which path was taken.
func (ts *TeamService) Load(ctx context.Context) LoadResult {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	teamsData, teamsOK, err := ts.world.Get(ctx, store.TeamsKey)
	if err != nil {
		ts.logger.Error("failed to read team snapshot, starting empty", zap.Error(err))
		return LoadResult{Status: CorruptData, Detail: err.Error()}
	}
	playersData, playersOK, err := ts.world.Get(ctx, store.PlayersKey)
	if err != nil {
		ts.logger.Error("failed to read player index snapshot, starting empty", zap.Error(err))
		return LoadResult{Status: CorruptData, Detail: err.Error()}
	}

	if !teamsOK && !playersOK {
		ts.logger.Info("no prior team data found")
		return LoadResult{Status: NoPriorData}
	}

	teams := make(map[string]*models.Team)
	playerTeam := make(map[string]string)

	if teamsOK {
		var snapshots []models.TeamSnapshot
		if err := json.Unmarshal([]byte(teamsData), &snapshots); err != nil {
			ts.logger.Error("corrupt team snapshot, starting empty", zap.Error(err))
			return LoadResult{Status: CorruptData, Detail: err.Error()}
		}
		for _, snap := range snapshots {
			teams[snap.Name] = snap.Restore()
		}
	}

	if playersOK {
		var pairs [][2]string
		if err := json.Unmarshal([]byte(playersData), &pairs); err != nil {
			ts.logger.Error("corrupt player index snapshot, starting empty", zap.Error(err))
			return LoadResult{Status: CorruptData, Detail: err.Error()}
		}
		for _, pair := range pairs {
			playerTeam[pair[0]] = pair[1]
		}
	}

	ts.teams = teams
	ts.playerTeam = playerTeam
	ts.logger.Info("team registry loaded", zap.Int("teams", len(teams)), zap.Int("players", len(playerTeam)))
	return LoadResult{Status: Loaded, Teams: len(teams)}
}

// Save persists both snapshot entries. It is a no-op unless a mutation marked
// the registry dirty; the flag is cleared only after both writes succeed, so a
// failed save is retried on the next periodic attempt.
func (ts *TeamService) Save(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.saveLocked(ctx)
}

func (ts *TeamService) saveLocked(ctx context.Context) error {
	if !ts.dirty {
		return nil
	}

	snapshots := make([]models.TeamSnapshot, 0, len(ts.teams))
	for _, team := range ts.teams {
		snapshots = append(snapshots, team.Snapshot())
	}
	teamsData, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("failed to marshal team snapshot: %w", err)
	}

	pairs := make([][2]string, 0, len(ts.playerTeam))
	for playerUUID, teamName := range ts.playerTeam {
		pairs = append(pairs, [2]string{playerUUID, teamName})
	}
	playersData, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("failed to marshal player index snapshot: %w", err)
	}

	if err := ts.world.Set(ctx, store.TeamsKey, string(teamsData)); err != nil {
		return fmt.Errorf("failed to persist team snapshot: %w", err)
	}
	if err := ts.world.Set(ctx, store.PlayersKey, string(playersData)); err != nil {
		return fmt.Errorf("failed to persist player index snapshot: %w", err)
	}

	ts.dirty = false
	ts.logger.Debug("team registry saved", zap.Int("teams", len(ts.teams)))
	return nil
}

// CreateTeam inserts a new empty team. It does not enroll any player.
func (ts *TeamService) CreateTeam(ctx context.Context, teamName string) error {
	if strings.TrimSpace(teamName) == "" {
		return ErrNameEmpty
	}
	if len([]rune(teamName)) > MaxTeamNameLength {
		return ErrNameTooLong
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.teams[teamName]; exists {
		return ErrTeamExists
	}

	ts.teams[teamName] = &models.Team{
		Name:      teamName,
		Members:   make(map[string]string),
		CreatedAt: ts.now().UnixMilli(),
	}
	ts.dirty = true
	ts.logger.Info("team created", zap.String("team", teamName))
	return nil
}

// JoinTeam enrolls a player into a team. A player belongs to at most one team
// at a time; the first member of a team becomes its leader.
func (ts *TeamService) JoinTeam(ctx context.Context, playerUUID, username, teamName string) (*models.Team, error) {
	ts.mu.Lock()

	team, exists := ts.teams[teamName]
	if !exists {
		ts.mu.Unlock()
		return nil, ErrTeamNotFound
	}
	if _, onTeam := ts.playerTeam[playerUUID]; onTeam {
		ts.mu.Unlock()
		return nil, ErrAlreadyOnTeam
	}

	team.Members[playerUUID] = username
	ts.playerTeam[playerUUID] = teamName
	if len(team.Members) == 1 {
		team.Leader = playerUUID
	}
	ts.dirty = true
	joined := team.Clone()
	ts.mu.Unlock()

	ts.display.SyncPlayer(ctx, playerUUID, teamName)
	ts.logger.Info("player joined team",
		zap.String("uuid", playerUUID),
		zap.String("team", teamName),
		zap.Bool("leader", joined.Leader == playerUUID))
	return joined, nil
}

// LeaveTeam removes a player from their current team. Leadership transfers to
// an arbitrary remaining member; an emptied team is deleted. Unlike the other
// mutators this persists immediately.
func (ts *TeamService) LeaveTeam(ctx context.Context, playerUUID string) (string, error) {
	ts.mu.Lock()

	teamName, onTeam := ts.playerTeam[playerUUID]
	if !onTeam {
		ts.mu.Unlock()
		return "", ErrNotOnTeam
	}
	team, exists := ts.teams[teamName]
	if !exists {
		ts.mu.Unlock()
		return "", ErrTeamNotFound
	}

	ts.removeMemberLocked(team, playerUUID)
	ts.mu.Unlock()

	ts.display.SyncPlayer(ctx, playerUUID, "")
	if err := ts.Save(ctx); err != nil {
		ts.logger.Error("save after leave failed", zap.String("team", teamName), zap.Error(err))
	}
	ts.logger.Info("player left team", zap.String("uuid", playerUUID), zap.String("team", teamName))
	return teamName, nil
}

// KickFromTeam removes the given member from the team, with the same
// succession and empty-team-deletion behavior as LeaveTeam, and persists
// immediately. The kicked player's display marker is synced as well.
func (ts *TeamService) KickFromTeam(ctx context.Context, playerUUID, teamName string) error {
	ts.mu.Lock()

	team, exists := ts.teams[teamName]
	if !exists {
		ts.mu.Unlock()
		return ErrTeamNotFound
	}
	if _, member := team.Members[playerUUID]; !member {
		ts.mu.Unlock()
		return ErrNotAMember
	}

	ts.removeMemberLocked(team, playerUUID)
	ts.mu.Unlock()

	ts.display.SyncPlayer(ctx, playerUUID, "")
	if err := ts.Save(ctx); err != nil {
		ts.logger.Error("save after kick failed", zap.String("team", teamName), zap.Error(err))
	}
	ts.logger.Info("player kicked from team", zap.String("uuid", playerUUID), zap.String("team", teamName))
	return nil
}

// removeMemberLocked updates both maps, transfers leadership and deletes the
// team once empty. Caller holds the mutex.
func (ts *TeamService) removeMemberLocked(team *models.Team, playerUUID string) {
	delete(team.Members, playerUUID)
	delete(ts.playerTeam, playerUUID)

	if team.Leader == playerUUID && len(team.Members) > 0 {
		for id := range team.Members {
			team.Leader = id
			break
		}
	}
	if len(team.Members) == 0 {
		delete(ts.teams, team.Name)
	}
	ts.dirty = true
}

// DeleteTeam disbands a team, clearing every member's reverse-index entry and
// syncing their display markers, then persists immediately.
func (ts *TeamService) DeleteTeam(ctx context.Context, teamName string) error {
	ts.mu.Lock()

	team, exists := ts.teams[teamName]
	if !exists {
		ts.mu.Unlock()
		return ErrTeamNotFound
	}

	memberIDs := team.MemberIDs()
	for _, id := range memberIDs {
		delete(ts.playerTeam, id)
	}
	delete(ts.teams, teamName)
	ts.dirty = true
	ts.mu.Unlock()

	for _, id := range memberIDs {
		ts.display.SyncPlayer(ctx, id, "")
	}
	if err := ts.Save(ctx); err != nil {
		ts.logger.Error("save after delete failed", zap.String("team", teamName), zap.Error(err))
	}
	ts.logger.Info("team deleted", zap.String("team", teamName), zap.Int("members", len(memberIDs)))
	return nil
}

// GetPlayerTeam returns a copy of the player's team, or nil when the player
// is on no team.
func (ts *TeamService) GetPlayerTeam(playerUUID string) *models.Team {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	teamName, onTeam := ts.playerTeam[playerUUID]
	if !onTeam {
		return nil
	}
	team, exists := ts.teams[teamName]
	if !exists {
		return nil
	}
	return team.Clone()
}

// TeamNameOf returns the player's team name, or "" when the player is on no team.
func (ts *TeamService) TeamNameOf(playerUUID string) string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.playerTeam[playerUUID]
}

// GetMembers returns the member UUIDs of a team; an empty list when the team
// is unknown.
func (ts *TeamService) GetMembers(teamName string) []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	team, exists := ts.teams[teamName]
	if !exists {
		return []string{}
	}
	return team.MemberIDs()
}

// SameTeam reports whether both players are on a team and it is the same one.
func (ts *TeamService) SameTeam(playerA, playerB string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	teamA, okA := ts.playerTeam[playerA]
	teamB, okB := ts.playerTeam[playerB]
	return okA && okB && teamA == teamB
}

// Teams returns copies of every team in the registry.
func (ts *TeamService) Teams() []*models.Team {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	teams := make([]*models.Team, 0, len(ts.teams))
	for _, team := range ts.teams {
		teams = append(teams, team.Clone())
	}
	return teams
}

// Dirty reports whether in-memory state has diverged from the last persisted
// snapshot.
func (ts *TeamService) Dirty() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.dirty
}

// ClearAll unconditionally empties both maps and erases the persisted
// snapshot. Not reversible.
func (ts *TeamService) ClearAll(ctx context.Context) error {
	ts.mu.Lock()
	ts.teams = make(map[string]*models.Team)
	ts.playerTeam = make(map[string]string)
	ts.dirty = false
	ts.mu.Unlock()

	if err := ts.world.Delete(ctx, store.TeamsKey, store.PlayersKey); err != nil {
		return fmt.Errorf("failed to erase persisted team data: %w", err)
	}
	ts.logger.Warn("all team data has been cleared")
	return nil
}
