package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

var errStreamingUnsupported = errors.New("openai model: streaming is not supported")

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint such
// as OpenRouter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// OpenAIModel adapts the OpenAI chat completions API to eino's
// model.BaseChatModel.
type OpenAIModel struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIModel creates a client for cfg. Requests are never retried.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai model: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model: model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (m *OpenAIModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params := m.buildParams(input, opts...)

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat completion: no choices in response")
	}

	choice := resp.Choices[0]
	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}, nil
}

func (m *OpenAIModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errStreamingUnsupported
}

func (m *OpenAIModel) buildParams(input []*schema.Message, opts ...model.Option) openai.ChatCompletionNewParams {
	modelName := m.cfg.Model
	base := &model.Options{Model: &modelName, MaxTokens: m.cfg.MaxTokens}
	if m.cfg.Temperature != nil {
		t := float32(*m.cfg.Temperature)
		base.Temperature = &t
	}
	if m.cfg.TopP != nil {
		p := float32(*m.cfg.TopP)
		base.TopP = &p
	}
	common := model.GetCommonOptions(base, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(*common.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(input)),
	}
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case schema.User:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		case schema.Assistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		}
	}
	if common.Temperature != nil {
		params.Temperature = openai.Float(float64(*common.Temperature))
	}
	if common.TopP != nil {
		params.TopP = openai.Float(float64(*common.TopP))
	}
	if common.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*common.MaxTokens))
	}
	return params
}
