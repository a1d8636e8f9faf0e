package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recoagent/internal/models"
)

// Store persists per-agent conversation history. Each agent has its own
// timeline; the database serializes concurrent appends so two simultaneous
// turns cannot interleave corruptly.
type Store struct {
	db *sql.DB
}

// NewStore builds a history store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append stores a new history entry and returns the stored record.
func (s *Store) Append(ctx context.Context, msg models.Message) (*models.Message, error) {
	if msg.AgentID <= 0 {
		return nil, errors.New("agent_id is required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (agent_id, role, lang, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.AgentID, msg.Role, msg.Lang, msg.Content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = now
	return &msg, nil
}

// Recent returns the last n history entries for the agent in chronological
// order. This is the window submitted to the completion API.
func (s *Store) Recent(ctx context.Context, agentID int64, n int) ([]*models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, role, lang, content, created_at FROM messages WHERE agent_id = ? ORDER BY id DESC LIMIT ?`,
		agentID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []*models.Message
	for rows.Next() {
		m := new(models.Message)
		var lang sql.NullString
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Role, &lang, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Lang = lang.String
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		messages = append(messages, newestFirst[i])
	}
	return messages, nil
}

// All returns every history entry for the agent in append order.
func (s *Store) All(ctx context.Context, agentID int64) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, role, lang, content, created_at FROM messages WHERE agent_id = ? ORDER BY id ASC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := new(models.Message)
		var lang sql.NullString
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Role, &lang, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Lang = lang.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
