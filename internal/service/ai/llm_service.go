package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/boardroom/backend/internal/config"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completion is the text produced for one chat turn.
type Completion struct {
	Content     string
	TotalTokens int
}

// Service runs the system prompt and conversation history through a chat
// model chain.
type Service struct {
	modelName string
	chain     compose.Runnable[map[string]any, *schema.Message]
	logger    *slog.Logger
}

// NewChatModel builds the chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	case config.ProviderOpenAI, "":
		m, err := NewOpenAIModel(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// NewService compiles the completion chain around chatModel. modelName is
// used for logging only.
func NewService(ctx context.Context, chatModel model.BaseChatModel, modelName string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		modelName: modelName,
		chain:     runnable,
		logger:    logger,
	}, nil
}

// Complete sends systemPrompt followed by history, which must already be in
// chronological order, and returns the model's reply.
func (s *Service) Complete(ctx context.Context, systemPrompt string, history []chat.Message) (Completion, error) {
	messages := buildHistoryMessages(history)
	s.logger.InfoContext(ctx, "calling model", "model", s.modelName, "messages", len(messages)+1)

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  systemPrompt,
		"history": messages,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return Completion{}, ErrEmptyCompletion
	}

	completion := Completion{Content: response.Content}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		completion.TotalTokens = response.ResponseMeta.Usage.TotalTokens
	}

	s.logger.InfoContext(ctx, "model response",
		"model", s.modelName,
		"tokens", completion.TotalTokens,
		"length", len(completion.Content),
	)
	return completion, nil
}

// buildHistoryMessages maps stored messages to provider roles, dropping any
// role the provider does not accept.
func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		case chat.RoleSystem:
			history = append(history, schema.SystemMessage(msg.Content))
		}
	}
	return history
}
