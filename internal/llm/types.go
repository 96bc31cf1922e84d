package llm

import "context"

type Provider interface {
	// Analyze sends the system and user messages and returns the model reply
	Analyze(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error)
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

type Response struct {
	Content string
	Usage   Usage
}
