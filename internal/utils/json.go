package utils

import (
	"github.com/chatapp/realtime-chat/internal/logging"

	"github.com/goccy/go-json"
)

// ParseJSON decodes data into v.
func ParseJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MarshalJSON encodes v.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		logging.Error().Err(err).Str("context", context).Msg("operation failed")
	}
}
