package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one role-tagged entry of an agent's conversation history.
type Message struct {
	ID        int64     `json:"id"`
	AgentID   int64     `json:"agent_id"`
	Role      Role      `json:"role"`
	Lang      string    `json:"lang,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
