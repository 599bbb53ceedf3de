package models

import "time"

// WebSocket message types
const (
	EventSyncCompleted = "sync_completed"
	EventSyncFailed    = "sync_failed"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type SyncEvent struct {
	Total     int       `json:"total"`
	Added     int       `json:"added"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the generic failure payload. It carries the raw error
// text and no machine-readable code.
type ErrorResponse struct {
	Error string `json:"error"`
}
