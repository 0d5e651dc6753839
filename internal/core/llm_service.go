package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Upstream completion failures collapse into a small taxonomy so the handler
// can answer with a machine-readable status instead of a raw provider error.
var (
	ErrUpstreamRateLimited = errors.New("completion provider rate limited")
	ErrUpstreamQuota       = errors.New("completion provider quota exhausted")
)

// ChatMessage is one conversation turn as accepted on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMService wraps an OpenAI-compatible completion gateway.
type LLMService struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewLLMService(apiKey, baseURL, model string, logger *zap.Logger) *LLMService {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &LLMService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named("llm"),
	}
}

// StreamCompletion opens a streaming completion for the system prompt plus
// full turn history. The caller owns the stream and must Close it; cancelling
// ctx tears down the provider connection.
func (s *LLMService) StreamCompletion(ctx context.Context, systemPrompt string, history []ChatMessage) (*openai.ChatCompletionStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		s.logger.Error("completion request failed", zap.Error(err))
		return nil, classifyUpstreamError(err)
	}
	return stream, nil
}

// classifyUpstreamError maps provider status codes onto the error taxonomy.
func classifyUpstreamError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case 429:
		return fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
	case 402:
		return fmt.Errorf("%w: %v", ErrUpstreamQuota, err)
	default:
		return fmt.Errorf("completion request failed: %w", err)
	}
}
