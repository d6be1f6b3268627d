// team/service/invite_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcforge/team-service/shared/models"
	"go.uber.org/zap"
)

var (
	ErrNoInvite      = fmt.Errorf("no pending invite")
	ErrInviteExpired = fmt.Errorf("invite has expired")
)

type invite struct {
	teamName string
	issuedAt time.Time
}

// InviteService tracks pending team invitations. Invites are keyed by the
// invitee's stable UUID, hold at most one entry per player (a newer invite
// replaces the previous one) and expire after a fixed window. Expiry is
// checked lazily at acceptance time; nothing is scheduled.
type InviteService struct {
	mu      sync.Mutex
	invites map[string]invite // invitee UUID -> pending invite

	ttl    time.Duration
	teams  *TeamService
	logger *zap.Logger
	now    func() time.Time
}

// NewInviteService creates a new InviteService instance.
func NewInviteService(teams *TeamService, ttl time.Duration, logger *zap.Logger) *InviteService {
	return &InviteService{
		invites: make(map[string]invite),
		ttl:     ttl,
		teams:   teams,
		logger:  logger,
		now:     time.Now,
	}
}

// Invite records a pending invitation for the invitee, unconditionally
// replacing any prior one. Last invite wins.
func (is *InviteService) Invite(teamName, inviteeUUID string) {
	is.mu.Lock()
	is.invites[inviteeUUID] = invite{teamName: teamName, issuedAt: is.now()}
	is.mu.Unlock()
	is.logger.Info("player invited to team",
		zap.String("uuid", inviteeUUID),
		zap.String("team", teamName),
		zap.Duration("window", is.ttl))
}

// Pending returns the team name of the invitee's unexpired pending invite,
// if any. It does not consume the invite.
func (is *InviteService) Pending(inviteeUUID string) (string, bool) {
	is.mu.Lock()
	defer is.mu.Unlock()

	inv, ok := is.invites[inviteeUUID]
	if !ok || is.now().Sub(inv.issuedAt) >= is.ttl {
		return "", false
	}
	return inv.teamName, true
}

// Accept consumes the invitee's pending invite and joins them to the inviting
// team. An expired entry is purged as a side effect of detecting expiry. The
// invite is dropped even when the join itself fails (e.g. the player joined
// another team in the interim); the leader has to invite again.
func (is *InviteService) Accept(ctx context.Context, inviteeUUID, username string) (*models.Team, error) {
	is.mu.Lock()
	inv, ok := is.invites[inviteeUUID]
	if !ok {
		is.mu.Unlock()
		return nil, ErrNoInvite
	}
	if is.now().Sub(inv.issuedAt) >= is.ttl {
		delete(is.invites, inviteeUUID)
		is.mu.Unlock()
		is.logger.Debug("expired invite purged", zap.String("uuid", inviteeUUID), zap.String("team", inv.teamName))
		return nil, ErrInviteExpired
	}
	delete(is.invites, inviteeUUID)
	is.mu.Unlock()

	team, err := is.teams.JoinTeam(ctx, inviteeUUID, username, inv.teamName)
	if err != nil {
		return nil, err
	}
	return team, nil
}
