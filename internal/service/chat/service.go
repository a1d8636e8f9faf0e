package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"recoagent/internal/logstore"
	"recoagent/internal/models"
	"recoagent/internal/service/ai"
	"recoagent/internal/service/history"
)

// ErrEmptyMessage rejects blank input before anything is logged.
var ErrEmptyMessage = errors.New("message manquant")

// Completer produces a reply for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []*models.Message) (string, error)
	Model() string
}

// Detector guesses the dominant language of a message.
type Detector interface {
	Detect(text string) string
}

// Notifier delivers a best-effort failure alert.
type Notifier interface {
	NotifyFailure(ctx context.Context, subject, detail string)
}

const (
	subjectTransportFailure = "Erreur de l'agent de Recommandation IA"
	subjectInvalidResponse  = "Réponse invalide de l'agent"
)

const systemPrompt = `Tu es un agent de recommandation intelligente.
Tu réponds uniquement si la question est une RECOMMANDATION.
Tu prends en compte tout le contexte de la conversation précédente pour répondre de manière cohérente.
Tu dois TOUJOURS répondre dans la langue détectée : %s.`

// Service orchestrates one chat turn: validate, detect the language, window
// the history, call the completion API with a bounded timeout, classify the
// outcome, and record exactly one ChatTurn whether it succeeded or not.
type Service struct {
	history   *history.Store
	logs      *logstore.Store
	completer Completer
	detector  Detector
	notifier  Notifier
	window    int
	timeout   time.Duration
}

// NewService wires the orchestrator. window and timeout fall back to the
// defaults (10 entries, 8s) when unset.
func NewService(hist *history.Store, logs *logstore.Store, completer Completer, detector Detector, notifier Notifier, window int, timeout time.Duration) *Service {
	if window <= 0 {
		window = 10
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Service{
		history:   hist,
		logs:      logs,
		completer: completer,
		detector:  detector,
		notifier:  notifier,
		window:    window,
		timeout:   timeout,
	}
}

// Ask handles one user message for the agent and returns the model's reply.
// Exactly one ChatTurn is appended to the log store per non-empty message,
// success or failure. History grows by two entries on success only.
func (s *Service) Ask(ctx context.Context, agentID int64, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	userLang := s.detector.Detect(message)

	outbound := []*models.Message{{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf(systemPrompt, userLang),
	}}
	recent, err := s.history.Recent(ctx, agentID, s.window)
	if err != nil {
		log.Printf("read history for agent %d: %v", agentID, err)
		recent = nil
	}
	outbound = append(outbound, recent...)
	outbound = append(outbound, &models.Message{
		AgentID: agentID,
		Role:    models.RoleUser,
		Lang:    userLang,
		Content: fmt.Sprintf("[Langue détectée : %s]\n%s", userLang, message),
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	reply, err := s.completer.Complete(callCtx, outbound)
	duration := round2(time.Since(start).Seconds())

	turn := models.ChatTurn{
		AgentID:   agentID,
		Message:   message,
		Timestamp: time.Now(),
		Duration:  duration,
		Success:   err == nil,
		API:       s.completer.Model(),
	}
	if err != nil {
		turn.Error = err.Error()
	}
	if logErr := s.logs.Append(turn); logErr != nil {
		log.Printf("append chat log for agent %d: %v", agentID, logErr)
	}

	if err != nil {
		subject := subjectTransportFailure
		if errors.Is(err, ai.ErrEmptyCompletion) {
			subject = subjectInvalidResponse
		}
		s.notifier.NotifyFailure(ctx, subject, fmt.Sprintf("Message: %s\nErreur: %v", message, err))
		return "", err
	}

	if _, histErr := s.history.Append(ctx, models.Message{
		AgentID: agentID,
		Role:    models.RoleUser,
		Lang:    userLang,
		Content: message,
	}); histErr != nil {
		log.Printf("append user history for agent %d: %v", agentID, histErr)
	}
	if _, histErr := s.history.Append(ctx, models.Message{
		AgentID: agentID,
		Role:    models.RoleAssistant,
		Content: reply,
	}); histErr != nil {
		log.Printf("append assistant history for agent %d: %v", agentID, histErr)
	}
	return reply, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
