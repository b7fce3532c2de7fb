package model

import "time"

// SessionInfo is the registry's record for one live session. CreatedAt keeps
// full nanosecond precision for administrative display.
type SessionInfo struct {
	UserID    uint32    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	IP        string    `json:"ip,omitempty"`
}

// SessionEntry pairs a session id with its record in online-tree snapshots.
type SessionEntry struct {
	ID   string      `json:"session_id"`
	Info SessionInfo `json:"info"`
}
