package models

import "time"

// ChatTurn is the logged record of one chat exchange, success or not.
// Appended records are never edited or removed.
type ChatTurn struct {
	AgentID   int64     `json:"agent_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"`
	Success   bool      `json:"success"`
	API       string    `json:"api"`
	Error     string    `json:"error,omitempty"`
}
