package realtime

import (
	"github.com/chatapp/realtime-chat/internal/utils"
	"github.com/chatapp/realtime-chat/internal/validation"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// decode parses and validates an event payload, answering c with an error
// event when either step fails.
func (h *Hub) decode(c *Client, data []byte, v interface{}) bool {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := utils.ParseJSON(data, v); err != nil {
		h.sendError(c, "Invalid event payload")
		return false
	}
	if err := validation.Struct(v); err != nil {
		h.sendError(c, err.Error())
		return false
	}
	return true
}
