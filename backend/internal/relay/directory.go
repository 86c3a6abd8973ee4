package relay

import (
	"slices"
	"strings"
	"sync"
)

// RoomInfo is a read-only view of one active room.
type RoomInfo struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// Directory maps room IDs to the set of connection IDs that are members.
// A room exists exactly while its member set is non-empty: it is created by
// Create and removed by the Leave that takes out its last member.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewDirectory creates an empty room directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]struct{})}
}

// Create adds a room with connID as its only member.
// It returns ErrRoomExists without touching membership if roomID is taken.
func (d *Directory) Create(roomID, connID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rooms[roomID]; ok {
		return ErrRoomExists
	}
	d.rooms[roomID] = map[string]struct{}{connID: {}}
	return nil
}

// Join adds connID to an existing room. Joining twice is a no-op.
func (d *Directory) Join(roomID, connID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	members[connID] = struct{}{}
	return nil
}

// Leave removes connID from roomID. removed reports whether connID was a
// member; deleted reports whether the room went away because it became empty.
func (d *Directory) Leave(roomID, connID string) (removed, deleted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return false, false
	}
	if _, ok := members[connID]; !ok {
		return false, false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(d.rooms, roomID)
		return true, true
	}
	return true, false
}

// MembersExcept returns the members of roomID other than connID, sorted.
// The result is empty if the room does not exist.
func (d *Directory) MembersExcept(roomID, connID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[roomID]
	ids := make([]string, 0, len(members))
	for id := range members {
		if id != connID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Exists reports whether roomID is active.
func (d *Directory) Exists(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.rooms[roomID]
	return ok
}

// Len returns the number of active rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Snapshot lists active rooms ordered by ID.
func (d *Directory) Snapshot() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]RoomInfo, 0, len(d.rooms))
	for id, members := range d.rooms {
		rooms = append(rooms, RoomInfo{ID: id, Members: len(members)})
	}
	slices.SortFunc(rooms, func(a, b RoomInfo) int { return strings.Compare(a.ID, b.ID) })
	return rooms
}

// Reset drops every room. Used when the hub shuts down.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms = make(map[string]map[string]struct{})
}
