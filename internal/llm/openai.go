package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/sozercan/agenicai/internal/config"
)

// OpenAI client implementation
type OpenAI struct {
	client *openai.Client
	cfg    *config.OpenAIConfig
}

func NewOpenAI(cfg *config.OpenAIConfig, extra ...option.RequestOption) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key cannot be empty")
	}

	var opts []option.RequestOption
	switch cfg.Provider {
	case "azure":
		opts = append(opts,
			azure.WithEndpoint(cfg.APIEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case "openai", "":
		opts = append(opts,
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.APIEndpoint),
		)
	default:
		return nil, fmt.Errorf("unknown OpenAI provider %q", cfg.Provider)
	}
	opts = append(opts, extra...)

	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (o *OpenAI) Analyze(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error) {
	options := &Options{
		Model:       o.cfg.Model,
		Temperature: 0,
		MaxTokens:   500,
	}
	if o.cfg.Provider == "azure" {
		options.Model = o.cfg.DeploymentName
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(systemMessages)+len(userMessages))
	for _, m := range systemMessages {
		messages = append(messages, openai.SystemMessage(m))
	}
	for _, m := range userMessages {
		messages = append(messages, openai.UserMessage(m))
	}

	slog.Debug("Calling chat completion", "model", options.Model, "messages", len(messages))
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.F(options.Model),
		Messages:    openai.F(messages),
		Temperature: openai.F(options.Temperature),
		MaxTokens:   openai.F(options.MaxTokens),
	})
	if err != nil {
		return nil, err
	}

	response := &Response{
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		response.Content = resp.Choices[0].Message.Content
	}

	return response, nil
}
