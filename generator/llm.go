package generator

import "context"

// LLMClient abstracts the model so it can be swapped or mocked.
// Implementations are called synchronously and may fail or time out.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt, sampling Sampling) (string, error)
}

// LLMFunc adapts a plain function to LLMClient.
type LLMFunc func(ctx context.Context, prompt Prompt, sampling Sampling) (string, error)

func (f LLMFunc) Complete(ctx context.Context, prompt Prompt, sampling Sampling) (string, error) {
	return f(ctx, prompt, sampling)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// MaxRetries is handed to the SDK; 0 disables transport-level retries.
	MaxRetries int
}
