// shared/models/team.go
package models

// Team is a named group of players. Leader is always one of the member ids
// while the team has members and empty otherwise; an empty team is deleted
// from the registry rather than retained.
type Team struct {
	Name      string
	Members   map[string]string // player UUID -> last-known display name
	Leader    string            // player UUID, "" while the team has no members
	CreatedAt int64             // milliseconds since epoch, set once at creation
}

// Clone returns a deep copy so callers cannot mutate registry-owned state.
func (t *Team) Clone() *Team {
	members := make(map[string]string, len(t.Members))
	for id, name := range t.Members {
		members[id] = name
	}
	return &Team{
		Name:      t.Name,
		Members:   members,
		Leader:    t.Leader,
		CreatedAt: t.CreatedAt,
	}
}

// MemberIDs returns the member UUIDs in no particular order.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for id := range t.Members {
		ids = append(ids, id)
	}
	return ids
}

// TeamSnapshot is the wire form of a single team inside the "team:teams"
// world entry: members as explicit [uuid, displayName] pairs, leader kept
// nullable to match the stored format.
type TeamSnapshot struct {
	Name    string      `json:"name"`
	Members [][2]string `json:"members"`
	Leader  *string     `json:"leader"`
	Date    int64       `json:"date"`
}

// Snapshot converts the team to its persisted form.
func (t *Team) Snapshot() TeamSnapshot {
	snap := TeamSnapshot{
		Name:    t.Name,
		Members: make([][2]string, 0, len(t.Members)),
		Date:    t.CreatedAt,
	}
	for id, name := range t.Members {
		snap.Members = append(snap.Members, [2]string{id, name})
	}
	if t.Leader != "" {
		leader := t.Leader
		snap.Leader = &leader
	}
	return snap
}

// Restore converts a persisted snapshot back to the in-memory form.
func (s TeamSnapshot) Restore() *Team {
	team := &Team{
		Name:      s.Name,
		Members:   make(map[string]string, len(s.Members)),
		CreatedAt: s.Date,
	}
	for _, pair := range s.Members {
		team.Members[pair[0]] = pair[1]
	}
	if s.Leader != nil {
		team.Leader = *s.Leader
	}
	return team
}
