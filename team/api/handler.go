// team/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcforge/team-service/shared/api"
	redisu "github.com/mcforge/team-service/shared/redis"
	"github.com/mcforge/team-service/team/display"
	"github.com/mcforge/team-service/team/service"
	"github.com/mcforge/team-service/team/store"
	"go.uber.org/zap"
)

// AdminTag is the marker a player must hold to run administrative commands.
const AdminTag = "admin"

// TeamAPIHandlers holds references to the services that handle the team
// command surface.
type TeamAPIHandlers struct {
	Teams    *service.TeamService
	Invites  *service.InviteService
	Presence store.PresenceStore
	Tags     store.TagStore
	Sync     *display.Synchronizer
	Resolver *display.Resolver
	Logger   *zap.Logger
}

// NewTeamAPIHandlers is the constructor for the team API handlers.
func NewTeamAPIHandlers(
	teams *service.TeamService,
	invites *service.InviteService,
	presence store.PresenceStore,
	tags store.TagStore,
	sync *display.Synchronizer,
	resolver *display.Resolver,
	logger *zap.Logger,
) *TeamAPIHandlers {
	return &TeamAPIHandlers{
		Teams:    teams,
		Invites:  invites,
		Presence: presence,
		Tags:     tags,
		Sync:     sync,
		Resolver: resolver,
		Logger:   logger,
	}
}

// --- Request/Response DTOs (Data Transfer Objects) ---

// CommandRequest is the structure for the request body of /team/command.
type CommandRequest struct {
	UUID       string `json:"uuid"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	TeamName   string `json:"team_name,omitempty"`
	TargetUUID string `json:"target_uuid,omitempty"`
}

// CommandResponse carries the (success, message) result the caller renders to
// the player.
type CommandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SessionRequest is the structure for the request body of /session/online and
// /session/offline.
type SessionRequest struct {
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
}

// ChatRequest is the structure for the request body of /chat.
type ChatRequest struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatResponse carries the rebroadcast line with the team prefix applied.
type ChatResponse struct {
	Formatted string `json:"formatted"`
}

// TeamInfo is the API form of a team.
type TeamInfo struct {
	Name      string            `json:"name"`
	Members   map[string]string `json:"members"`
	Leader    string            `json:"leader,omitempty"`
	CreatedAt int64             `json:"created_at"`
}

// OnlinePlayerInfo identifies one connected player.
type OnlinePlayerInfo struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// --- Handler Methods ---

// HandleCommand dispatches a single /team slash command.
// POST /team/command
// Body: { "uuid": ..., "username": ..., "action": "create|accept|kick|invite|leave|clear", ... }
func (tah *TeamAPIHandlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	playerUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		api.WriteBadRequest(w, "Invalid UUID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch req.Action {
	case "create":
		tah.handleCreate(ctx, w, playerUUID.String(), req)
	case "accept":
		tah.handleAccept(ctx, w, playerUUID.String(), req)
	case "kick":
		tah.handleKick(ctx, w, playerUUID.String(), req)
	case "invite":
		tah.handleInvite(ctx, w, playerUUID.String(), req)
	case "leave":
		tah.handleLeave(ctx, w, playerUUID.String())
	case "clear":
		tah.handleClear(ctx, w, playerUUID.String())
	default:
		api.WriteBadRequest(w, "You have to use the arguments /team | create | accept | leave | invite | kick |")
	}
}

func (tah *TeamAPIHandlers) handleCreate(ctx context.Context, w http.ResponseWriter, playerUUID string, req CommandRequest) {
	if tah.Teams.GetPlayerTeam(playerUUID) != nil {
		writeResult(w, false, "You can't create a team because you're already on one")
		return
	}

	if err := tah.Teams.CreateTeam(ctx, req.TeamName); err != nil {
		switch {
		case errors.Is(err, service.ErrNameEmpty):
			writeResult(w, false, "[Team] The team name cannot be empty")
		case errors.Is(err, service.ErrNameTooLong):
			writeResult(w, false, fmt.Sprintf("[Team] The team name is too long (max %d characters)", service.MaxTeamNameLength))
		case errors.Is(err, service.ErrTeamExists):
			writeResult(w, false, "[Team] The team already exists")
		default:
			tah.Logger.Error("create team failed", zap.String("team", req.TeamName), zap.Error(err))
			api.WriteInternalServerError(w, "Failed to create team")
		}
		return
	}

	// The creator immediately joins the fresh team and becomes its leader.
	if _, err := tah.Teams.JoinTeam(ctx, playerUUID, req.Username, req.TeamName); err != nil {
		tah.Logger.Error("join after create failed",
			zap.String("uuid", playerUUID), zap.String("team", req.TeamName), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to join created team")
		return
	}
	writeResult(w, true, fmt.Sprintf("[Team] Team %s successfully created", req.TeamName))
}

func (tah *TeamAPIHandlers) handleAccept(ctx context.Context, w http.ResponseWriter, playerUUID string, req CommandRequest) {
	team, err := tah.Invites.Accept(ctx, playerUUID, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoInvite):
			writeResult(w, false, "You don't have any invitations to join a team")
		case errors.Is(err, service.ErrInviteExpired):
			writeResult(w, false, "Can't accept it because the invitation has expired")
		case errors.Is(err, service.ErrAlreadyOnTeam):
			writeResult(w, false, fmt.Sprintf("[Team] You're already on the %s team", tah.Teams.TeamNameOf(playerUUID)))
		case errors.Is(err, service.ErrTeamNotFound):
			writeResult(w, false, "[Team] The team does not exist")
		default:
			tah.Logger.Error("accept invite failed", zap.String("uuid", playerUUID), zap.Error(err))
			api.WriteInternalServerError(w, "Failed to accept invitation")
		}
		return
	}
	writeResult(w, true, fmt.Sprintf("[Team] You joined team %s", team.Name))
}

func (tah *TeamAPIHandlers) handleKick(ctx context.Context, w http.ResponseWriter, playerUUID string, req CommandRequest) {
	team := tah.Teams.GetPlayerTeam(playerUUID)
	if team == nil || team.Leader != playerUUID {
		api.WriteForbidden(w, "You can't use this")
		return
	}
	if req.TargetUUID == "" {
		api.WriteBadRequest(w, "Target player UUID is required")
		return
	}
	if req.TargetUUID == playerUUID {
		writeResult(w, false, "You can't kick yourself, use /team leave")
		return
	}

	if err := tah.Teams.KickFromTeam(ctx, req.TargetUUID, team.Name); err != nil {
		switch {
		case errors.Is(err, service.ErrNotAMember):
			writeResult(w, false, "The player is not on the team")
		case errors.Is(err, service.ErrTeamNotFound):
			writeResult(w, false, "[Team] The team does not exist")
		default:
			tah.Logger.Error("kick failed",
				zap.String("target", req.TargetUUID), zap.String("team", team.Name), zap.Error(err))
			api.WriteInternalServerError(w, "Failed to kick player")
		}
		return
	}
	writeResult(w, true, fmt.Sprintf("Player expelled from the %s team", team.Name))
}

func (tah *TeamAPIHandlers) handleInvite(ctx context.Context, w http.ResponseWriter, playerUUID string, req CommandRequest) {
	team := tah.Teams.GetPlayerTeam(playerUUID)
	if team == nil || team.Leader != playerUUID {
		api.WriteForbidden(w, "You can't use this")
		return
	}
	if req.TargetUUID == "" {
		api.WriteBadRequest(w, "Target player UUID is required")
		return
	}

	online, err := tah.Presence.IsOnline(ctx, req.TargetUUID)
	if err != nil {
		tah.Logger.Error("presence check for invite failed", zap.String("target", req.TargetUUID), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to check invited player")
		return
	}
	if !online {
		writeResult(w, false, "The player is not online")
		return
	}
	if tah.Teams.GetPlayerTeam(req.TargetUUID) != nil {
		writeResult(w, false, "The player is already on a team")
		return
	}

	tah.Invites.Invite(team.Name, req.TargetUUID)
	writeResult(w, true, fmt.Sprintf("You invited the player to the %s team, they have 30 seconds to accept with /team accept", team.Name))
}

func (tah *TeamAPIHandlers) handleLeave(ctx context.Context, w http.ResponseWriter, playerUUID string) {
	left, err := tah.Teams.LeaveTeam(ctx, playerUUID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotOnTeam):
			writeResult(w, false, "You can't use this because you're not on a team")
		case errors.Is(err, service.ErrTeamNotFound):
			writeResult(w, false, "[Team] The team does not exist")
		default:
			tah.Logger.Error("leave failed", zap.String("uuid", playerUUID), zap.Error(err))
			api.WriteInternalServerError(w, "Failed to leave team")
		}
		return
	}
	writeResult(w, true, fmt.Sprintf("[Team] You left the team %s", left))
}

func (tah *TeamAPIHandlers) handleClear(ctx context.Context, w http.ResponseWriter, playerUUID string) {
	isAdmin, err := tah.Tags.HasTag(ctx, playerUUID, AdminTag)
	if err != nil {
		tah.Logger.Error("admin check failed", zap.String("uuid", playerUUID), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to check permissions")
		return
	}
	if !isAdmin {
		api.WriteForbidden(w, "You can't use this")
		return
	}

	if err := tah.Teams.ClearAll(ctx); err != nil {
		tah.Logger.Error("clear all failed", zap.Error(err))
		api.WriteInternalServerError(w, "Failed to clear team data")
		return
	}
	writeResult(w, true, "[Team] All team system data has been cleaned")
}

// GetPlayerTeam returns the team a player currently belongs to.
// GET /players/{uuid}/team
func (tah *TeamAPIHandlers) GetPlayerTeam(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	vars := mux.Vars(r)
	playerUUID := vars["uuid"]
	if playerUUID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	team := tah.Teams.GetPlayerTeam(playerUUID)
	if team == nil {
		api.WriteNotFound(w, "Player is not on any team")
		return
	}
	api.WriteJSON(w, http.StatusOK, teamInfo(team.Name, team.Members, team.Leader, team.CreatedAt))
}

// ListTeams enumerates every registered team.
// GET /teams
func (tah *TeamAPIHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	teams := tah.Teams.Teams()
	infos := make([]TeamInfo, 0, len(teams))
	for _, team := range teams {
		infos = append(infos, teamInfo(team.Name, team.Members, team.Leader, team.CreatedAt))
	}
	api.WriteJSON(w, http.StatusOK, infos)
}

// GetTeamMembers returns the member UUIDs of a team; an empty list when the
// team is unknown.
// GET /teams/{name}/members
func (tah *TeamAPIHandlers) GetTeamMembers(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	vars := mux.Vars(r)
	teamName := vars["name"]
	if teamName == "" {
		api.WriteBadRequest(w, "Team name is required")
		return
	}
	api.WriteJSON(w, http.StatusOK, tah.Teams.GetMembers(teamName))
}

// ListTeamlessPlayers returns every online player currently on no team, the
// candidate list for an invite picker.
// GET /players/teamless
func (tah *TeamAPIHandlers) ListTeamlessPlayers(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	online, err := tah.Presence.OnlinePlayers(ctx)
	if err != nil {
		tah.Logger.Error("failed to list online players", zap.Error(err))
		api.WriteInternalServerError(w, "Failed to list online players")
		return
	}

	teamless := make([]OnlinePlayerInfo, 0)
	for playerUUID, username := range online {
		if tah.Teams.TeamNameOf(playerUUID) == "" {
			teamless = append(teamless, OnlinePlayerInfo{UUID: playerUUID, Username: username})
		}
	}
	api.WriteJSON(w, http.StatusOK, teamless)
}

// HandleChat formats an intercepted chat message for rebroadcast with the
// sender's team prefix.
// POST /chat
func (tah *TeamAPIHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.UUID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	teamName := tah.Teams.TeamNameOf(req.UUID)
	api.WriteJSON(w, http.StatusOK, ChatResponse{
		Formatted: display.FormatChat(teamName, req.Username, req.Message),
	})
}

// GetPlayerNameTag returns the player's rendered nametag, prefixed with their
// team when they are on one. The proxy polls this when refreshing displayed
// names.
// GET /players/{uuid}/nametag
func (tah *TeamAPIHandlers) GetPlayerNameTag(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	vars := mux.Vars(r)
	playerUUID := vars["uuid"]
	if playerUUID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		// Fall back to the last-known name the registry holds.
		if team := tah.Teams.GetPlayerTeam(playerUUID); team != nil {
			username = team.Members[playerUUID]
		}
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{
		"nametag": display.FormatNameTag(tah.Teams.TeamNameOf(playerUUID), username),
	})
}

// HandleOnline marks a player as connected and schedules the connect-time
// display sync once the player resolves.
// POST /session/online
func (tah *TeamAPIHandlers) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	playerUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		api.WriteBadRequest(w, "Invalid UUID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := tah.Presence.SetOnline(ctx, playerUUID.String(), req.Username); err != nil {
		tah.Logger.Error("failed to set player online", zap.String("uuid", playerUUID.String()), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to set player online status")
		return
	}
	tah.Resolver.OnConnect(playerUUID.String())

	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Player set online", "uuid": playerUUID.String()})
}

// HandleOffline marks a player as disconnected and syncs their display marker.
// POST /session/offline
func (tah *TeamAPIHandlers) HandleOffline(w http.ResponseWriter, r *http.Request) {
	if !tah.ready(w) {
		return
	}
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	playerUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		api.WriteBadRequest(w, "Invalid UUID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := tah.Presence.SetOffline(ctx, playerUUID.String()); err != nil {
		tah.Logger.Error("failed to set player offline", zap.String("uuid", playerUUID.String()), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to set player offline status")
		return
	}
	tah.Sync.SyncPlayer(ctx, playerUUID.String(), tah.Teams.TeamNameOf(playerUUID.String()))

	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Player set offline", "uuid": playerUUID.String()})
}

// HandleHeartbeat extends a connected player's presence TTL. The proxy calls
// this on a cadence shorter than the TTL so idle players stay marked online.
// POST /session/heartbeat
func (tah *TeamAPIHandlers) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	playerUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		api.WriteBadRequest(w, "Invalid UUID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := tah.Presence.Refresh(ctx, playerUUID.String()); err != nil {
		if errors.Is(err, redisu.ErrKeyNotFound) {
			api.WriteNotFound(w, "Player is not online")
			return
		}
		tah.Logger.Error("failed to refresh player presence", zap.String("uuid", playerUUID.String()), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to refresh player presence")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Presence refreshed", "uuid": playerUUID.String()})
}

// GetPlayerOnlineStatus checks a player's presence.
// GET /players/{uuid}/online
func (tah *TeamAPIHandlers) GetPlayerOnlineStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	playerUUID := vars["uuid"]
	if playerUUID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	isOnline, err := tah.Presence.IsOnline(ctx, playerUUID)
	if err != nil {
		tah.Logger.Error("failed to check online status", zap.String("uuid", playerUUID), zap.Error(err))
		api.WriteInternalServerError(w, "Failed to check player online status")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uuid":     playerUUID,
		"isOnline": isOnline,
	})
}

// RegisterRoutes registers all API endpoints for the Team Service.
// This method is called from main.go to set up the HTTP routes.
func (tah *TeamAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/team/command", tah.HandleCommand).Methods("POST")

	router.HandleFunc("/teams", tah.ListTeams).Methods("GET")
	router.HandleFunc("/teams/{name}/members", tah.GetTeamMembers).Methods("GET")
	router.HandleFunc("/players/teamless", tah.ListTeamlessPlayers).Methods("GET")
	router.HandleFunc("/players/{uuid}/team", tah.GetPlayerTeam).Methods("GET")
	router.HandleFunc("/players/{uuid}/online", tah.GetPlayerOnlineStatus).Methods("GET")
	router.HandleFunc("/players/{uuid}/nametag", tah.GetPlayerNameTag).Methods("GET")

	router.HandleFunc("/chat", tah.HandleChat).Methods("POST")
	router.HandleFunc("/session/online", tah.HandleOnline).Methods("POST")
	router.HandleFunc("/session/offline", tah.HandleOffline).Methods("POST")
	router.HandleFunc("/session/heartbeat", tah.HandleHeartbeat).Methods("POST")
}

// ready guards every caller-facing entry point against the registry not being
// initialized yet.
func (tah *TeamAPIHandlers) ready(w http.ResponseWriter) bool {
	if tah.Teams == nil {
		api.WriteError(w, http.StatusServiceUnavailable, "Team System is not initialized")
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, success bool, message string) {
	api.WriteJSON(w, http.StatusOK, CommandResponse{Success: success, Message: message})
}

func teamInfo(name string, members map[string]string, leader string, createdAt int64) TeamInfo {
	return TeamInfo{Name: name, Members: members, Leader: leader, CreatedAt: createdAt}
}
