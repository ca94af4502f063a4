// Package realtime delivers presence, typing and chat messages over
// WebSocket connections. A Hub owns the connection registry and the
// per-session rooms; the durable state it reads and writes lives behind
// Store.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/metrics"
	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/utils"
)

// Store is the durable state the realtime layer depends on.
type Store interface {
	SessionIDsForUser(ctx context.Context, userID string) ([]string, error)
	IsSessionMember(ctx context.Context, sessionID, userID string) (bool, error)
	CreateMessage(ctx context.Context, in models.NewMessage) (*models.Message, error)
	TouchSession(ctx context.Context, sessionID string) error
	UpdatePresence(ctx context.Context, userID string, status models.UserStatus, lastSeen time.Time) error
	MarkMessageRead(ctx context.Context, messageID, readerID string) (*models.Message, error)
}

type Hub struct {
	store    Store
	registry *Registry
	rooms    *Rooms
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

type Option func(*Hub)

// WithClock overrides the time source used for lastSeen and readAt.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(store Store, opts ...Option) *Hub {
	h := &Hub{
		store:    store,
		registry: NewRegistry(),
		rooms:    NewRooms(),
		now:      time.Now,
		clients:  make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Rooms() *Rooms       { return h.rooms }

// ClientCount returns the number of live connections, replaced ones included.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsOnline reports whether userID has a registered connection.
func (h *Hub) IsOnline(userID string) bool {
	_, ok := h.registry.Lookup(userID)
	return ok
}

// Connect registers an authenticated connection, subscribes it to the
// rooms of every session its user belongs to, marks the user ONLINE and
// tells the new connection who is online.
func (h *Hub) Connect(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.registry.Register(c.UserID(), c)
	metrics.WSConnections.Set(float64(n))
	metrics.OnlineUsers.Set(float64(h.registry.Len()))

	logging.Info().
		Str("conn_id", c.ID()).
		Str("user_id", c.UserID()).
		Str("email", c.Email()).
		Msg("user connected")

	sessionIDs, err := h.store.SessionIDsForUser(ctx, c.UserID())
	if err != nil {
		logging.Error().Err(err).Str("user_id", c.UserID()).Msg("failed to load session rooms")
	}
	for _, id := range sessionIDs {
		h.rooms.Join(c, id)
	}

	h.setPresence(ctx, c.UserID(), models.StatusOnline)
	h.send(c, EventUsersOnline, h.registry.OnlineUserIDs())
}

// Disconnect drops every subscription of c. If c is still the user's
// registered connection the user is marked OFFLINE.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	h.rooms.LeaveAll(c)
	current := h.registry.UnregisterIf(c.UserID(), c)
	metrics.WSConnections.Set(float64(n))
	metrics.OnlineUsers.Set(float64(h.registry.Len()))

	logging.Info().
		Str("conn_id", c.ID()).
		Str("user_id", c.UserID()).
		Bool("replaced", !current).
		Msg("user disconnected")

	if current {
		h.setPresence(ctx, c.UserID(), models.StatusOffline)
	}
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// HandleEvent dispatches one inbound frame from c. Failures are reported
// to c as error events and never returned.
func (h *Hub) HandleEvent(ctx context.Context, c *Client, raw []byte) {
	var frame Frame
	if err := utils.ParseJSON(raw, &frame); err != nil || frame.Event == "" {
		metrics.RecordEvent("invalid", "rejected")
		h.sendError(c, "Invalid event payload")
		return
	}

	var outcome string
	switch frame.Event {
	case EventTypingStart:
		outcome = h.handleTyping(c, frame.Data, true)
	case EventTypingStop:
		outcome = h.handleTyping(c, frame.Data, false)
	case EventMessageSend:
		outcome = h.handleSend(ctx, c, frame.Data)
	case EventMessageRead:
		outcome = h.handleRead(ctx, c, frame.Data)
	case EventSessionJoin:
		outcome = h.handleJoin(c, frame.Data)
	case EventSessionLeave:
		outcome = h.handleLeave(c, frame.Data)
	case EventStatusUpdate:
		outcome = h.handleStatus(ctx, c, frame.Data)
	default:
		metrics.RecordEvent("unknown", "rejected")
		h.sendError(c, "Unknown event: "+frame.Event)
		return
	}
	metrics.RecordEvent(frame.Event, outcome)
}

func (h *Hub) handleJoin(c *Client, data []byte) string {
	var p SessionPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}
	h.rooms.Join(c, p.SessionID)
	return outcomeOK
}

func (h *Hub) handleLeave(c *Client, data []byte) string {
	var p SessionPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}
	h.rooms.Leave(c, p.SessionID)
	return outcomeOK
}

// BroadcastAll queues an event for every live connection.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Enqueue(frame)
	}
}

// BroadcastRoom queues an event for every connection in the session's
// room except the one given.
func (h *Hub) BroadcastRoom(sessionID, event string, data interface{}, except *Client) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return
	}
	for _, c := range h.rooms.Members(sessionID) {
		if c == except {
			continue
		}
		c.Enqueue(frame)
	}
}

// SendTo queues an event for the user's registered connection. It reports
// false when the user is not online.
func (h *Hub) SendTo(userID, event string, data interface{}) bool {
	c, ok := h.registry.Lookup(userID)
	if !ok {
		return false
	}
	return h.send(c, event, data)
}

func (h *Hub) send(c *Client, event string, data interface{}) bool {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return false
	}
	return c.Enqueue(frame)
}

func (h *Hub) sendError(c *Client, msg string) {
	h.send(c, EventError, ErrorPayload{Message: msg})
}
