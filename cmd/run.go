package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/config"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/observability"
	"github.com/abhisek/quizgen/internal/platform/logger"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/store"
)

// deps holds everything a command needs. Build it with loadDeps and
// release it with Close.
type deps struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store

	shutdownTracing observability.Shutdown
}

// loadConfig resolves configuration and applies the persistent flags,
// which take priority over every other source.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, ".env", ".env.local")
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("db"); v != "" {
		cfg.Store.Path = v
	}
	if v, _ := flags.GetString("provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v, _ := flags.GetString("log-mode"); v != "" {
		cfg.Log.Mode = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDeps builds the logger, tracing, and store.
func loadDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	d := &deps{cfg: cfg, log: log}

	d.shutdownTracing, err = observability.InitOTel(cmd.Context(), log, observability.OtelConfig{
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}

	if !cfg.Store.Disabled {
		st, err := openStore(cfg)
		if err != nil {
			log.Warn("event log unavailable, continuing without it", "error", err)
		} else {
			d.store = st
		}
	}
	return d, nil
}

func (d *deps) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.shutdownTracing != nil {
		_ = d.shutdownTracing(context.Background())
	}
	d.log.Sync()
}

// eventRepo returns the store's repository, or nil without a store.
func (d *deps) eventRepo() store.EventRepo {
	if d.store == nil {
		return nil
	}
	return d.store.EventRepo()
}

// recorder returns the bulk run recorder, or nil without a store.
func (d *deps) recorder() bulk.Recorder {
	if d.store == nil {
		return nil
	}
	return d.store.EventRepo()
}

func (d *deps) provider(ctx context.Context) (llm.Provider, error) {
	if err := d.cfg.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	return llm.NewProvider(ctx, d.cfg.LLM, d.eventRepo(), d.log)
}

// pipeline builds the generator and the orchestrator over it.
func (d *deps) pipeline(ctx context.Context) (llm.Provider, *bulk.Orchestrator, error) {
	provider, err := d.provider(ctx)
	if err != nil {
		return nil, nil, err
	}
	gen := questiongen.New(provider, d.cfg.Generation, d.log)
	return provider, bulk.New(gen, d.cfg.Bulk, d.log, d.recorder()), nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path != "" {
		if err := store.EnsureDir(path); err != nil {
			return nil, err
		}
	} else {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	}
	return store.Open(path)
}

// openStoreOnly opens the store for inspection commands.
func openStoreOnly(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
