package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
)

// NewProvider builds the configured provider, wrapped with retries.
func NewProvider(ctx context.Context, conf core.LLMConfig) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch conf.Provider {
	case "openai":
		base, err = NewOpenAIProvider(conf.APIKey, conf.Model, conf.BaseURL)
	case "anthropic":
		base, err = NewAnthropicProvider(conf.APIKey, conf.Model, conf.BaseURL)
	case "gemini":
		base, err = NewGeminiProvider(ctx, conf.APIKey, conf.Model)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, errors.Errorf("unknown LLM provider: %q", conf.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "initializing %s provider", conf.Provider)
	}

	return WithRetry(base, RetryConfig{
		MaxAttempts: conf.MaxAttempts,
		InitialWait: time.Second,
		MaxWait:     10 * time.Second,
		Multiplier:  2,
	}), nil
}
