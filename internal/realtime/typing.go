package realtime

// handleTyping relays a typing indicator to the rest of the session's room.
// Nothing is stored.
func (h *Hub) handleTyping(c *Client, data []byte, isTyping bool) string {
	var p SessionPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}
	h.BroadcastRoom(p.SessionID, EventUserTyping, Typing{
		UserID:    c.UserID(),
		SessionID: p.SessionID,
		IsTyping:  isTyping,
	}, c)
	return outcomeOK
}
