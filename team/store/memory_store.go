// team/store/memory_store.go
package store

import (
	"context"
	"fmt"
	"sync"

	redisu "github.com/mcforge/team-service/shared/redis"
)

// In-memory store implementations backing standalone mode and tests. They
// mirror the Redis-backed behavior minus key expiry: a player stays online
// until SetOffline.

// MemoryWorldStore is a map-backed WorldStore.
type MemoryWorldStore struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryWorldStore returns an empty in-memory world store.
func NewMemoryWorldStore() *MemoryWorldStore {
	return &MemoryWorldStore{entries: make(map[string]string)}
}

func (ws *MemoryWorldStore) Get(ctx context.Context, key string) (string, bool, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	val, ok := ws.entries[key]
	return val, ok, nil
}

func (ws *MemoryWorldStore) Set(ctx context.Context, key, value string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.entries[key] = value
	return nil
}

func (ws *MemoryWorldStore) Delete(ctx context.Context, keys ...string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, key := range keys {
		delete(ws.entries, key)
	}
	return nil
}

var _ WorldStore = (*MemoryWorldStore)(nil)

// MemoryPresenceStore is a map-backed PresenceStore.
type MemoryPresenceStore struct {
	mu     sync.Mutex
	online map[string]string // player UUID -> display name
}

// NewMemoryPresenceStore returns an empty in-memory presence store.
func NewMemoryPresenceStore() *MemoryPresenceStore {
	return &MemoryPresenceStore{online: make(map[string]string)}
}

func (ps *MemoryPresenceStore) SetOnline(ctx context.Context, playerUUID, username string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.online[playerUUID] = username
	return nil
}

func (ps *MemoryPresenceStore) Refresh(ctx context.Context, playerUUID string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.online[playerUUID]; !ok {
		return fmt.Errorf("could not refresh presence for player %s: %w", playerUUID, redisu.ErrKeyNotFound)
	}
	return nil
}

func (ps *MemoryPresenceStore) SetOffline(ctx context.Context, playerUUID string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.online, playerUUID)
	return nil
}

func (ps *MemoryPresenceStore) IsOnline(ctx context.Context, playerUUID string) (bool, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_, ok := ps.online[playerUUID]
	return ok, nil
}

func (ps *MemoryPresenceStore) OnlinePlayers(ctx context.Context) (map[string]string, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	online := make(map[string]string, len(ps.online))
	for uuid, username := range ps.online {
		online[uuid] = username
	}
	return online, nil
}

var _ PresenceStore = (*MemoryPresenceStore)(nil)

// MemoryTagStore is a map-backed TagStore.
type MemoryTagStore struct {
	mu   sync.Mutex
	tags map[string]map[string]struct{} // player UUID -> tag set
}

// NewMemoryTagStore returns an empty in-memory tag store.
func NewMemoryTagStore() *MemoryTagStore {
	return &MemoryTagStore{tags: make(map[string]map[string]struct{})}
}

func (ts *MemoryTagStore) AddTag(ctx context.Context, playerUUID, tag string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	set, ok := ts.tags[playerUUID]
	if !ok {
		set = make(map[string]struct{})
		ts.tags[playerUUID] = set
	}
	set[tag] = struct{}{}
	return nil
}

func (ts *MemoryTagStore) RemoveTag(ctx context.Context, playerUUID, tag string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if set, ok := ts.tags[playerUUID]; ok {
		delete(set, tag)
	}
	return nil
}

func (ts *MemoryTagStore) HasTag(ctx context.Context, playerUUID, tag string) (bool, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	set, ok := ts.tags[playerUUID]
	if !ok {
		return false, nil
	}
	_, has := set[tag]
	return has, nil
}

func (ts *MemoryTagStore) Tags(ctx context.Context, playerUUID string) ([]string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	set := ts.tags[playerUUID]
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	return tags, nil
}

var _ TagStore = (*MemoryTagStore)(nil)
