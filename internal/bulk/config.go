package bulk

import "errors"

// Config controls the Orchestrator.
type Config struct {
	// DefaultConcurrency is the batch size when a request does not set one.
	DefaultConcurrency int `yaml:"default_concurrency"`

	// MaxCount caps the questions per request. Zero means no cap.
	MaxCount int `yaml:"max_count"`

	// MaxInFlight bounds outstanding generations across all requests
	// served by one Orchestrator. Zero means no process-wide bound.
	MaxInFlight int `yaml:"max_in_flight"`
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		DefaultConcurrency: 3,
		MaxCount:           50,
		MaxInFlight:        8,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.DefaultConcurrency < 1:
		return errors.New("default_concurrency must be at least 1")
	case c.MaxCount < 0:
		return errors.New("max_count must not be negative")
	case c.MaxInFlight < 0:
		return errors.New("max_in_flight must not be negative")
	}
	return nil
}
