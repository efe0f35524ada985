// Package config resolves quizgen settings from defaults, an optional YAML
// file, .env files and QUIZGEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/questiongen"
)

// EnvConfigFile names the variable that points at a YAML config file.
const EnvConfigFile = "QUIZGEN_CONFIG"

// Config is the complete application configuration.
type Config struct {
	LLM        llm.Config         `yaml:"llm"`
	Generation questiongen.Config `yaml:"generation"`
	Bulk       bulk.Config        `yaml:"bulk"`
	Server     ServerConfig       `yaml:"server"`
	Store      StoreConfig        `yaml:"store"`
	Log        LogConfig          `yaml:"log"`
	Telemetry  TelemetryConfig    `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	CORSOrigins []string      `yaml:"cors_origins"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// StoreConfig locates the SQLite event log. An empty Path means the
// per-user default location.
type StoreConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`  // dev or prod
	Level string `yaml:"level"` // debug, info, warn, error
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	// Exporter is "none", "stdout" or "otlp".
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		LLM:        llm.DefaultConfig(),
		Generation: questiongen.DefaultConfig(),
		Bulk:       bulk.DefaultConfig(),
		Server: ServerConfig{
			Addr:        ":5001",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			ReadTimeout: 30 * time.Second,
		},
		Log: LogConfig{Mode: "dev", Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "quizgen",
			SampleRatio: 1,
		},
	}
}

// Load resolves configuration. path may be empty, in which case
// QUIZGEN_CONFIG is consulted. envFiles are loaded with godotenv before the
// environment is read; missing files are ignored. Variables already set in
// the process environment win over .env values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.LLM.Discover()

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadEnvFiles(files []string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LLM.ApplyEnv()

	setString(&c.Server.Addr, "QUIZGEN_ADDR")
	if v := os.Getenv("QUIZGEN_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	setString(&c.Store.Path, "QUIZGEN_DB")
	setString(&c.Log.Mode, "QUIZGEN_LOG_MODE")
	setString(&c.Log.Level, "QUIZGEN_LOG_LEVEL")
	setString(&c.Telemetry.Exporter, "QUIZGEN_TRACE_EXPORTER")
	setString(&c.Telemetry.Endpoint, "QUIZGEN_OTLP_ENDPOINT")

	setInt(&c.Generation.MaxAttempts, "QUIZGEN_MAX_ATTEMPTS")
	setInt(&c.Bulk.DefaultConcurrency, "QUIZGEN_CONCURRENCY")
	setInt(&c.Bulk.MaxCount, "QUIZGEN_MAX_COUNT")
	setInt(&c.Bulk.MaxInFlight, "QUIZGEN_MAX_IN_FLIGHT")
	if v := os.Getenv("QUIZGEN_RETRY_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Generation.Backoff.InitialWait = d
		}
	}
}

// Validate checks every section. The LLM section is validated separately
// by commands that call a model, since some commands never do.
func (c Config) Validate() error {
	var errs []error
	if err := c.Generation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("generation: %w", err))
	}
	if err := c.Bulk.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bulk: %w", err))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server: addr must not be empty"))
	}
	switch c.Log.Mode {
	case "dev", "prod", "production", "":
	default:
		errs = append(errs, fmt.Errorf("log: unknown mode %q", c.Log.Mode))
	}
	switch c.Telemetry.Exporter {
	case "none", "", "stdout":
	case "otlp":
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry: endpoint is required for the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("telemetry: unknown exporter %q", c.Telemetry.Exporter))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry: sample_ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
