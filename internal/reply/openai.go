package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pingbackhq/pingbacker/internal/config"
	"github.com/pingbackhq/pingbacker/internal/conversation"
)

// OpenAIGenerator calls an OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIGenerator creates a generator from the [openai] config section.
func NewOpenAIGenerator(log *slog.Logger, cfg config.OpenAIConfig) *OpenAIGenerator {
	if log == nil {
		log = slog.Default()
	}
	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultOpenAITimeout) * time.Second
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
		logger:  log.With(slog.String("service", "reply")),
	}
}

// Generate submits the window as chat messages and returns the completion
// text. Upstream failures and blank completions come back as a
// *GenerationError; it never silently returns empty text.
func (g *OpenAIGenerator) Generate(ctx context.Context, window []conversation.Turn) (string, error) {
	if len(window) == 0 {
		return "", &GenerationError{Cause: fmt.Errorf("conversation window is empty")}
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(window))
	for _, turn := range window {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: msgs,
	})
	if err != nil {
		return "", &GenerationError{Cause: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Cause: fmt.Errorf("completion response has no choices")}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &GenerationError{Cause: fmt.Errorf("completion returned empty text")}
	}
	return text, nil
}
