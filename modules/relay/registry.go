package relay

import (
	"sort"
	"sync"
)

// ConnID identifies one physical socket.
type ConnID string

// connEntry is the registry's view of a live connection.
type connEntry struct {
	userID string
	rooms  map[string]struct{}
}

// Registry tracks live connections, their identity and the rooms they joined.
// Rooms are created on first join and removed when their last member leaves.
type Registry struct {
	mu    sync.Mutex
	conns map[ConnID]*connEntry
	rooms map[string]map[ConnID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*connEntry),
		rooms: make(map[string]map[ConnID]struct{}),
	}
}

// Register adds a connection with no identity and no rooms.
// Registering a known connection leaves its state untouched.
func (r *Registry) Register(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(conn)
}

// Identify binds userID to conn and joins conn to the personal room named by userID.
func (r *Registry) Identify(conn ConnID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(conn)
	e.userID = userID
	r.join(conn, e, userID)
}

// JoinRoom adds conn to room.
func (r *Registry) JoinRoom(conn ConnID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.join(conn, r.entry(conn), room)
}

// LeaveAll removes conn from every room it belongs to. The connection stays registered.
func (r *Registry) LeaveAll(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[conn]; ok {
		r.leaveAll(conn, e)
	}
}

// Deregister removes conn from every room and drops it. Unknown connections are ignored.
func (r *Registry) Deregister(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return
	}
	r.leaveAll(conn, e)
	delete(r.conns, conn)
}

// MembersOf returns the connections currently in room, sorted by id.
// An unknown room yields an empty slice.
func (r *Registry) MembersOf(room string) []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	out := make([]ConnID, 0, len(members))
	for conn := range members {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Identity returns the user bound to conn, if any.
func (r *Registry) Identity(conn ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok || e.userID == "" {
		return "", false
	}
	return e.userID, true
}

// RoomsOf returns the rooms conn has joined, sorted.
func (r *Registry) RoomsOf(conn ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Registered reports whether conn is known to the registry.
func (r *Registry) Registered(conn ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[conn]
	return ok
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// entry returns the entry for conn, creating it if needed. Caller holds mu.
func (r *Registry) entry(conn ConnID) *connEntry {
	e, ok := r.conns[conn]
	if !ok {
		e = &connEntry{rooms: make(map[string]struct{})}
		r.conns[conn] = e
	}
	return e
}

func (r *Registry) join(conn ConnID, e *connEntry, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[ConnID]struct{})
		r.rooms[room] = members
	}
	members[conn] = struct{}{}
	e.rooms[room] = struct{}{}
}

func (r *Registry) leaveAll(conn ConnID, e *connEntry) {
	for room := range e.rooms {
		if members, ok := r.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	e.rooms = make(map[string]struct{})
}
