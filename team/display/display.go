// team/display/display.go
package display

import (
	"context"
	"regexp"
	"strings"

	"github.com/mcforge/team-service/team/store"
	"go.uber.org/zap"
)

// MarkerPrefix prefixes every team-derived marker tag so stale markers can be
// recognized and stripped.
const MarkerPrefix = "team_"

var markerSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// MarkerForTeam derives the marker tag for a team name, replacing every
// character outside [A-Za-z0-9_] with an underscore.
func MarkerForTeam(teamName string) string {
	return MarkerPrefix + markerSanitizer.ReplaceAllString(teamName, "_")
}

// Synchronizer keeps a player's persistent team marker in line with their
// current membership. SyncPlayer is idempotent: applying it twice in a row
// yields the same final marker state.
type Synchronizer struct {
	tags   store.TagStore
	logger *zap.Logger
}

// NewSynchronizer creates a new Synchronizer instance.
func NewSynchronizer(tags store.TagStore, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{tags: tags, logger: logger}
}

// SyncPlayer strips any previously applied team marker and, when teamName is
// non-empty, applies the marker derived from it.
func (s *Synchronizer) SyncPlayer(ctx context.Context, playerUUID, teamName string) {
	current, err := s.tags.Tags(ctx, playerUUID)
	if err != nil {
		s.logger.Error("failed to read player tags for display sync",
			zap.String("uuid", playerUUID), zap.Error(err))
		return
	}

	want := ""
	if teamName != "" {
		want = MarkerForTeam(teamName)
	}

	for _, tag := range current {
		if strings.HasPrefix(tag, MarkerPrefix) && tag != want {
			if err := s.tags.RemoveTag(ctx, playerUUID, tag); err != nil {
				s.logger.Error("failed to strip stale team marker",
					zap.String("uuid", playerUUID), zap.String("tag", tag), zap.Error(err))
			}
		}
	}

	if want != "" {
		if err := s.tags.AddTag(ctx, playerUUID, want); err != nil {
			s.logger.Error("failed to apply team marker",
				zap.String("uuid", playerUUID), zap.String("tag", want), zap.Error(err))
		}
	}
}
