package logstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"recoagent/internal/models"
)

// Store persists chat turns as one human-readable JSON array file per agent
// (logs_<agent_id>.json). The whole array is rewritten on every append; the
// format is kept deliberately simple and isolated behind this type so it can
// later be swapped for a true append-only structure without touching callers.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New builds a store rooted at dir. The directory is created lazily on the
// first append.
func New(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (s *Store) path(agentID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("logs_%d.json", agentID))
}

// agentLock serializes the read-modify-write cycle per agent so concurrent
// requests to the same agent cannot lose appends.
func (s *Store) agentLock(agentID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[agentID] = lock
	}
	return lock
}

// Append durably records one turn for its agent. An unreadable or corrupt
// existing file is restarted with the new entry rather than failing the turn.
func (s *Store) Append(turn models.ChatTurn) error {
	lock := s.agentLock(turn.AgentID)
	lock.Lock()
	defer lock.Unlock()

	turns := s.readFile(turn.AgentID)
	turns = append(turns, turn)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	if err := os.WriteFile(s.path(turn.AgentID), data, 0o644); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

// ReadAll returns every turn ever appended for the agent in append order.
// A missing or corrupt file reads as an empty log so the stats endpoints
// degrade gracefully instead of surfacing storage errors.
func (s *Store) ReadAll(agentID int64) []models.ChatTurn {
	lock := s.agentLock(agentID)
	lock.Lock()
	defer lock.Unlock()
	return s.readFile(agentID)
}

func (s *Store) readFile(agentID int64) []models.ChatTurn {
	data, err := os.ReadFile(s.path(agentID))
	if err != nil {
		return nil
	}
	var turns []models.ChatTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil
	}
	return turns
}
