package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"recoagent/internal/config"
	"recoagent/internal/models"
)

// ErrEmptyCompletion marks a call that reached the provider but came back
// without usable reply text. Callers treat it differently from transport
// failures when classifying the turn.
var ErrEmptyCompletion = errors.New("réponse invalide ou incomplète")

// Client performs single-turn completions against one configured provider.
// An OpenAI-compatible relay such as OpenRouter is just the "openai"
// provider with a custom base_url.
type Client struct {
	chatModel model.ToolCallingChatModel
	provider  string
	modelName string
}

// NewClient builds a completion client for the named provider.
func NewClient(ctx context.Context, provider string, provCfg config.ProviderConfig) (*Client, error) {
	var (
		chatModel model.ToolCallingChatModel
		err       error
	)

	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Client{
		chatModel: chatModel,
		provider:  provider,
		modelName: provCfg.Model,
	}, nil
}

// Model returns the model identifier used for outbound calls.
func (c *Client) Model() string {
	return c.modelName
}

// Complete sends the message list and returns the reply text. The caller
// bounds ctx with the request timeout.
func (c *Client) Complete(ctx context.Context, messages []*models.Message) (string, error) {
	resp, err := c.chatModel.Generate(ctx, convertMessages(messages))
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func convertMessages(history []*models.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		if msg == nil {
			continue
		}
		var role schema.RoleType
		switch msg.Role {
		case models.RoleUser:
			role = schema.User
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
