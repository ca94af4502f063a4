package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu sync.Mutex

	members  map[string][]string // sessionID -> userIDs
	messages map[string]*models.Message
	touched  []string
	presence []StatusChange

	failCreate   error
	failPresence error
	failRead     error
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:  make(map[string][]string),
		messages: make(map[string]*models.Message),
	}
}

func (s *fakeStore) addSession(sessionID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[sessionID] = userIDs
}

func (s *fakeStore) SessionIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for sid, users := range s.members {
		for _, u := range users {
			if u == userID {
				ids = append(ids, sid)
			}
		}
	}
	return ids, nil
}

func (s *fakeStore) IsSessionMember(_ context.Context, sessionID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.members[sessionID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, in models.NewMessage) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	s.nextID++
	msg := &models.Message{
		ID:         "m" + string(rune('0'+s.nextID)),
		Content:    in.Content,
		Type:       in.Type,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		SessionID:  in.SessionID,
		Sender:     &models.UserSummary{ID: in.SenderID},
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *fakeStore) TouchSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, sessionID)
	return nil
}

func (s *fakeStore) UpdatePresence(_ context.Context, userID string, status models.UserStatus, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPresence != nil {
		return s.failPresence
	}
	s.presence = append(s.presence, StatusChange{UserID: userID, Status: status, LastSeen: lastSeen})
	return nil
}

func (s *fakeStore) MarkMessageRead(_ context.Context, messageID, _ string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead != nil {
		return nil, s.failRead
	}
	msg, ok := s.messages[messageID]
	if !ok {
		return nil, errors.New("not found")
	}
	msg.IsRead = true
	return msg, nil
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeWrite struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	mu       sync.Mutex
	writes   []fakeWrite
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{messageType: messageType, data: data})
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) snapshot() []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeWrite(nil), f.writes...)
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain returns every frame queued for c without blocking.
func drain(t *testing.T, c *Client) []received {
	t.Helper()
	var out []received
	for {
		select {
		case frame := <-c.send:
			var r received
			require.NoError(t, json.Unmarshal(frame, &r))
			out = append(out, r)
		default:
			return out
		}
	}
}

func eventsNamed(frames []received, name string) []received {
	var out []received
	for _, f := range frames {
		if f.Event == name {
			out = append(out, f)
		}
	}
	return out
}

func decodeData(t *testing.T, r received, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func mustFrame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	return raw
}
