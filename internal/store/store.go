package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the ent SQL driver and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers; a single connection keeps pragmas and
	// in-memory databases consistent across calls.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{drv: s.drv, seq: s.seq}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const (
	tableLLMEvents      = "llm_request_events"
	tableGenerationRuns = "generation_runs"
)

func col(name, typ string, attrs ...string) *entsql.ColumnBuilder {
	c := entsql.Column(name).Type(typ)
	for _, a := range attrs {
		c.Attr(a)
	}
	return c
}

// schema returns the DDL builders for every event table.
func schema() []entsql.Querier {
	b := entsql.Dialect(dialect.SQLite)
	return []entsql.Querier{
		b.CreateTable(tableLLMEvents).IfNotExists().Columns(
			col("id", "INTEGER", "PRIMARY KEY AUTOINCREMENT"),
			col("sequence", "INTEGER", "NOT NULL UNIQUE"),
			col("timestamp", "INTEGER", "NOT NULL"),
			col("provider", "TEXT", "NOT NULL"),
			col("model", "TEXT", "NOT NULL"),
			col("purpose", "TEXT", "NOT NULL"),
			col("input_tokens", "INTEGER", "NOT NULL DEFAULT 0"),
			col("output_tokens", "INTEGER", "NOT NULL DEFAULT 0"),
			col("latency_ms", "INTEGER", "NOT NULL DEFAULT 0"),
			col("success", "INTEGER", "NOT NULL"),
			col("error_message", "TEXT", "NOT NULL DEFAULT ''"),
			col("request_body", "TEXT", "NOT NULL DEFAULT ''"),
			col("response_body", "TEXT", "NOT NULL DEFAULT ''"),
		),
		b.CreateIndex("idx_llm_request_events_timestamp").IfNotExists().Table(tableLLMEvents).Column("timestamp"),
		b.CreateIndex("idx_llm_request_events_purpose").IfNotExists().Table(tableLLMEvents).Column("purpose"),
		b.CreateTable(tableGenerationRuns).IfNotExists().Columns(
			col("id", "INTEGER", "PRIMARY KEY AUTOINCREMENT"),
			col("sequence", "INTEGER", "NOT NULL UNIQUE"),
			col("timestamp", "INTEGER", "NOT NULL"),
			col("run_id", "TEXT", "NOT NULL UNIQUE"),
			col("question_type", "TEXT", "NOT NULL"),
			col("requested", "INTEGER", "NOT NULL"),
			col("concurrency", "INTEGER", "NOT NULL"),
			col("succeeded", "INTEGER", "NOT NULL"),
			col("failed", "INTEGER", "NOT NULL"),
			col("cancelled", "INTEGER", "NOT NULL"),
			col("duration_ms", "INTEGER", "NOT NULL"),
		),
		b.CreateIndex("idx_generation_runs_timestamp").IfNotExists().Table(tableGenerationRuns).Column("timestamp"),
	}
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range schema() {
		query, args := stmt.Query()
		if err := drv.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("%s: %w", query, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. QUIZGEN_DB environment variable
// 2. $XDG_DATA_HOME/quizgen/quizgen.db
// 3. ~/.local/share/quizgen/quizgen.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("QUIZGEN_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "quizgen", "quizgen.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
