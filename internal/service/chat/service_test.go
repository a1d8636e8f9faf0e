package chat

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recoagent/internal/config"
	"recoagent/internal/logstore"
	"recoagent/internal/models"
	"recoagent/internal/service/ai"
	"recoagent/internal/service/history"
	"recoagent/internal/storage"
)

type stubCompleter struct {
	reply string
	err   error
	calls [][]*models.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []*models.Message) (string, error) {
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubCompleter) Model() string { return "test-model" }

type stubDetector struct{ lang string }

func (s stubDetector) Detect(string) string { return s.lang }

type stubNotifier struct {
	subjects []string
	details  []string
}

func (s *stubNotifier) NotifyFailure(_ context.Context, subject, detail string) {
	s.subjects = append(s.subjects, subject)
	s.details = append(s.details, detail)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: filepath.Join(t.TempDir(), "chat_test.db")},
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

func newTestService(t *testing.T, completer *stubCompleter, notifier *stubNotifier) (*Service, *history.Store, *logstore.Store) {
	t.Helper()
	hist := history.NewStore(openTestDB(t))
	logs := logstore.New(t.TempDir())
	svc := NewService(hist, logs, completer, stubDetector{lang: "fr"}, notifier, 10, 8*time.Second)
	return svc, hist, logs
}

func TestAskRejectsEmptyMessage(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	notifier := &stubNotifier{}
	svc, hist, logs := newTestService(t, completer, notifier)

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Ask(context.Background(), 7, input); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("input %q: expected ErrEmptyMessage, got %v", input, err)
		}
	}

	if got := len(logs.ReadAll(7)); got != 0 {
		t.Fatalf("empty input must not be logged, got %d turns", got)
	}
	messages, err := hist.All(context.Background(), 7)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("empty input must not touch history, got %d entries", len(messages))
	}
	if len(completer.calls) != 0 {
		t.Fatalf("completion API must not be called for empty input")
	}
}

func TestAskSuccess(t *testing.T) {
	completer := &stubCompleter{reply: "Essaie Le Fabuleux Destin d'Amélie Poulain."}
	notifier := &stubNotifier{}
	svc, hist, logs := newTestService(t, completer, notifier)

	reply, err := svc.Ask(context.Background(), 7, "Recommande-moi un film")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply != completer.reply {
		t.Fatalf("expected model reply, got %q", reply)
	}

	turns := logs.ReadAll(7)
	if len(turns) != 1 {
		t.Fatalf("expected exactly one logged turn, got %d", len(turns))
	}
	turn := turns[0]
	if !turn.Success || turn.API != "test-model" || turn.Message != "Recommande-moi un film" {
		t.Fatalf("unexpected logged turn: %#v", turn)
	}
	if turn.Error != "" {
		t.Fatalf("successful turn must not carry an error, got %q", turn.Error)
	}
	if turn.Duration < 0 {
		t.Fatalf("duration must be non-negative, got %v", turn.Duration)
	}

	messages, err := hist.All(context.Background(), 7)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("history must grow by 2 on success, got %d entries", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[0].Content != "Recommande-moi un film" {
		t.Fatalf("unexpected user history entry: %#v", messages[0])
	}
	if messages[1].Role != models.RoleAssistant || messages[1].Content != completer.reply {
		t.Fatalf("unexpected assistant history entry: %#v", messages[1])
	}
	if len(notifier.subjects) != 0 {
		t.Fatalf("success must not notify, got %v", notifier.subjects)
	}
}

func TestAskOutboundMessageShape(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	svc, _, _ := newTestService(t, completer, &stubNotifier{})

	if _, err := svc.Ask(context.Background(), 7, "Recommande-moi un livre"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.calls))
	}
	outbound := completer.calls[0]
	if len(outbound) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(outbound))
	}
	if outbound[0].Role != models.RoleSystem || !strings.Contains(outbound[0].Content, "fr") {
		t.Fatalf("system preamble must pin the detected language: %#v", outbound[0])
	}
	last := outbound[len(outbound)-1]
	if last.Role != models.RoleUser || !strings.HasPrefix(last.Content, "[Langue détectée : fr]\n") {
		t.Fatalf("user message must carry the language tag: %#v", last)
	}
}

func TestAskWindowsHistory(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	svc, hist, _ := newTestService(t, completer, &stubNotifier{})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if _, err := hist.Append(ctx, models.Message{AgentID: 7, Role: role, Content: "old"}); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	if _, err := svc.Ask(ctx, 7, "encore une recommandation"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	outbound := completer.calls[0]
	// system + 10-entry window + current message
	if len(outbound) != 12 {
		t.Fatalf("expected 12 outbound messages, got %d", len(outbound))
	}
}

func TestAskTransportFailure(t *testing.T) {
	transportErr := errors.New("generate completion: context deadline exceeded")
	completer := &stubCompleter{err: transportErr}
	notifier := &stubNotifier{}
	svc, hist, logs := newTestService(t, completer, notifier)

	_, err := svc.Ask(context.Background(), 7, "Recommande-moi un film")
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}

	turns := logs.ReadAll(7)
	if len(turns) != 1 {
		t.Fatalf("failed turn must still be logged once, got %d", len(turns))
	}
	if turns[0].Success {
		t.Fatalf("turn must be marked failed")
	}
	if !strings.Contains(turns[0].Error, "deadline exceeded") {
		t.Fatalf("expected transport detail in turn error, got %q", turns[0].Error)
	}

	messages, herr := hist.All(context.Background(), 7)
	if herr != nil {
		t.Fatalf("read history: %v", herr)
	}
	if len(messages) != 0 {
		t.Fatalf("failed turn must not touch history, got %d entries", len(messages))
	}

	if len(notifier.subjects) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.subjects))
	}
	if notifier.subjects[0] != subjectTransportFailure {
		t.Fatalf("unexpected subject: %q", notifier.subjects[0])
	}
	if !strings.Contains(notifier.details[0], "Recommande-moi un film") {
		t.Fatalf("notification should carry the user message: %q", notifier.details[0])
	}
}

func TestAskInvalidResponse(t *testing.T) {
	completer := &stubCompleter{err: ai.ErrEmptyCompletion}
	notifier := &stubNotifier{}
	svc, _, logs := newTestService(t, completer, notifier)

	_, err := svc.Ask(context.Background(), 7, "Recommande-moi un film")
	if !errors.Is(err, ai.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
	if len(notifier.subjects) != 1 || notifier.subjects[0] != subjectInvalidResponse {
		t.Fatalf("expected invalid-response subject, got %v", notifier.subjects)
	}
	if got := len(logs.ReadAll(7)); got != 1 {
		t.Fatalf("expected one logged turn, got %d", got)
	}
}
