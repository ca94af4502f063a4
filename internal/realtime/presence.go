package realtime

import (
	"context"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/models"
)

// setPresence persists status and broadcasts it to every connection. A
// persistence failure is logged; the broadcast still goes out.
func (h *Hub) setPresence(ctx context.Context, userID string, status models.UserStatus) {
	lastSeen := h.now()
	if err := h.store.UpdatePresence(ctx, userID, status, lastSeen); err != nil {
		logging.Warn().Err(err).
			Str("user_id", userID).
			Str("status", string(status)).
			Msg("failed to persist presence")
	}
	h.AnnouncePresence(userID, status, lastSeen)
}

// AnnouncePresence broadcasts a status change persisted elsewhere.
func (h *Hub) AnnouncePresence(userID string, status models.UserStatus, lastSeen time.Time) {
	h.BroadcastAll(EventUserStatus, StatusChange{UserID: userID, Status: status, LastSeen: lastSeen})
}

func (h *Hub) handleStatus(ctx context.Context, c *Client, data []byte) string {
	var p StatusPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}
	h.setPresence(ctx, c.UserID(), p.Status)
	return outcomeOK
}
