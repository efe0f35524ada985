package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/quizgen/internal/platform/logger"
	"github.com/abhisek/quizgen/internal/store"
)

// defaultMaxTokens applies when a request leaves MaxTokens unset and the
// provider requires a value.
const defaultMaxTokens = 2048

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with tracing, logging, and timeout
// middleware. eventRepo may be nil.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg.Provider, cfg.Timeout, eventRepo, log), nil
}

// Wrap applies the standard middleware stack to a base provider:
// caller -> tracing -> logging -> timeout -> base.
func Wrap(base Provider, providerName string, timeout time.Duration, eventRepo store.EventRepo, log *logger.Logger) Provider {
	p := WithTimeout(base, timeout)
	p = WithLogging(p, providerName, eventRepo, log)
	return WithTracing(p, providerName)
}
