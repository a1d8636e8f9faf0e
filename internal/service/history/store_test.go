package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"recoagent/internal/config"
	"recoagent/internal/models"
	"recoagent/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: filepath.Join(t.TempDir(), "history_test.db")},
	}}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndAll(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if _, err := store.Append(ctx, models.Message{
			AgentID: 7,
			Role:    role,
			Content: fmt.Sprintf("entry %d", i),
		}); err != nil {
			t.Fatalf("append entry %d: %v", i, err)
		}
	}

	messages, err := store.All(ctx, 7)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.Content != fmt.Sprintf("entry %d", i) {
			t.Fatalf("message %d out of order: %q", i, msg.Content)
		}
	}
}

func TestAppendRequiresAgent(t *testing.T) {
	store := NewStore(openTestDB(t))
	if _, err := store.Append(context.Background(), models.Message{Role: models.RoleUser, Content: "x"}); err == nil {
		t.Fatalf("expected error for missing agent id")
	}
}

func TestRecentWindowsAndOrders(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := store.Append(ctx, models.Message{
			AgentID: 7,
			Role:    models.RoleUser,
			Content: fmt.Sprintf("entry %d", i),
		}); err != nil {
			t.Fatalf("append entry %d: %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, 7, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(recent))
	}
	if recent[0].Content != "entry 15" || recent[9].Content != "entry 24" {
		t.Fatalf("window not chronological: first %q last %q", recent[0].Content, recent[9].Content)
	}
}

func TestRecentIsolatesAgents(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Append(ctx, models.Message{AgentID: 1, Role: models.RoleUser, Content: "agent one"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Append(ctx, models.Message{AgentID: 2, Role: models.RoleUser, Content: "agent two"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := store.Recent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Content != "agent one" {
		t.Fatalf("histories not isolated per agent: %#v", recent)
	}
}
