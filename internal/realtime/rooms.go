package realtime

import (
	"sort"
	"sync"
)

const roomPrefix = "chat:"

// RoomKey names the broadcast group of a chat session.
func RoomKey(sessionID string) string {
	return roomPrefix + sessionID
}

// Rooms tracks which connections are subscribed to which session rooms.
// Join trusts its caller; membership is checked when a message is sent.
type Rooms struct {
	mu sync.RWMutex
	// room key -> subscribed clients
	rooms map[string]map[*Client]struct{}
	// client -> room keys, for LeaveAll
	joined map[*Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

func (m *Rooms) Join(c *Client, sessionID string) {
	key := RoomKey(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[key]; !ok {
		m.rooms[key] = make(map[*Client]struct{})
	}
	m.rooms[key][c] = struct{}{}

	if _, ok := m.joined[c]; !ok {
		m.joined[c] = make(map[string]struct{})
	}
	m.joined[c][key] = struct{}{}
}

func (m *Rooms) Leave(c *Client, sessionID string) {
	key := RoomKey(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(c, key)
}

// LeaveAll drops every subscription of c.
func (m *Rooms) LeaveAll(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.joined[c] {
		m.leaveLocked(c, key)
	}
	delete(m.joined, c)
}

func (m *Rooms) leaveLocked(c *Client, key string) {
	if members, ok := m.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, key)
		}
	}
	if keys, ok := m.joined[c]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.joined, c)
		}
	}
}

// Members returns a snapshot of the clients in a session's room, ordered
// by connection ID.
func (m *Rooms) Members(sessionID string) []*Client {
	m.mu.RLock()
	members := m.rooms[RoomKey(sessionID)]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// In reports whether c is subscribed to the session's room.
func (m *Rooms) In(c *Client, sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[RoomKey(sessionID)][c]
	return ok
}

// Count returns the number of non-empty rooms.
func (m *Rooms) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
