package questiongen

import (
	"errors"
	"time"
)

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxAttempts bounds the number of model calls per question.
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff is the wait between attempts.
	Backoff Backoff `yaml:"backoff"`

	// MaxTokens is the token budget for the model response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls output randomness (0.0-2.0).
	Temperature float64 `yaml:"temperature"`

	// TopP is the nucleus sampling cutoff. Zero leaves the provider default.
	TopP float64 `yaml:"top_p"`

	// Model overrides the provider's configured model. Empty keeps it.
	Model string `yaml:"model"`

	// StructuredOutput sends the template schema to providers that
	// support native JSON output. Responses are validated either way.
	StructuredOutput bool `yaml:"structured_output"`

	// ShuffleOrderingItems shuffles the lot of an ordering question when
	// its display order already equals the solution order.
	ShuffleOrderingItems bool `yaml:"shuffle_ordering_items"`
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          3,
		Backoff:              FixedBackoff(500 * time.Millisecond),
		MaxTokens:            2048,
		Temperature:          0.7,
		ShuffleOrderingItems: true,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return errors.New("max_attempts must be at least 1")
	case c.MaxTokens < 0:
		return errors.New("max_tokens must not be negative")
	case c.Temperature < 0 || c.Temperature > 2:
		return errors.New("temperature must be between 0 and 2")
	case c.TopP < 0 || c.TopP > 1:
		return errors.New("top_p must be between 0 and 1")
	case c.Backoff.InitialWait < 0 || c.Backoff.MaxWait < 0:
		return errors.New("backoff waits must not be negative")
	}
	return nil
}
