package store

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestReopenKeepsEventsAndSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()
	data := LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "question-gen", Success: true}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.EventRepo().AppendLLMRequest(ctx, data); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	repo := s.EventRepo()
	if err := repo.AppendLLMRequest(ctx, data); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Sequence != 2 || events[1].Sequence != 1 {
		t.Errorf("sequences = %d, %d; want 2, 1", events[0].Sequence, events[1].Sequence)
	}
}

func TestQueryRangeFilters(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i := range 5 {
		run := GenerationRunData{RunID: fmt.Sprintf("run-%d", i), QuestionType: "SOL", Requested: 1, Concurrency: 1, Succeeded: 1}
		if err := repo.AppendGenerationRun(ctx, run); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	runs, err := repo.QueryGenerationRuns(ctx, QueryOpts{After: 1, Before: 5})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var got []int64
	for _, r := range runs {
		got = append(got, r.Sequence)
	}
	if want := []int64{4, 3, 2}; !slices.Equal(got, want) {
		t.Errorf("sequences = %v, want %v", got, want)
	}

	past, err := repo.QueryGenerationRuns(ctx, QueryOpts{To: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("to filter: got %d, want 0", len(past))
	}
}

func TestSequenceIsShared(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "question-gen", Success: true}); err != nil {
		t.Fatalf("append llm: %v", err)
	}
	if err := repo.AppendGenerationRun(ctx, GenerationRunData{RunID: "r1", QuestionType: "SOL", Requested: 1, Concurrency: 1, Succeeded: 1}); err != nil {
		t.Fatalf("append run: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query llm: %v", err)
	}
	runs, err := repo.QueryGenerationRuns(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if len(events) != 1 || len(runs) != 1 {
		t.Fatalf("expected 1 event and 1 run, got %d and %d", len(events), len(runs))
	}
	if events[0].Sequence != 1 || runs[0].Sequence != 2 {
		t.Errorf("sequences = %d, %d; want 1, 2", events[0].Sequence, runs[0].Sequence)
	}
}

func TestLLMEventRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Purpose:      "question-gen",
		InputTokens:  120,
		OutputTokens: 80,
		LatencyMs:    950,
		Success:      false,
		ErrorMessage: "rate limited",
		RequestBody:  "[user]\nprompt",
		ResponseBody: "",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got, err := repo.GetLLMEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Model != "gpt-4o-mini" || got.Success || got.ErrorMessage != "rate limited" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.RequestBody != "[user]\nprompt" {
		t.Errorf("request body = %q", got.RequestBody)
	}
	if got.Timestamp.Before(before) {
		t.Errorf("timestamp %s before %s", got.Timestamp, before)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing event")
	}
}

func TestQueryLLMEventsFilters(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	purposes := []string{"question-gen", "raw-text", "question-gen", "question-gen"}
	for _, p := range purposes {
		if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: p, Success: true}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	if all[0].Sequence < all[len(all)-1].Sequence {
		t.Error("expected newest first")
	}

	gen, _ := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "question-gen"})
	if len(gen) != 3 {
		t.Errorf("purpose filter: got %d, want 3", len(gen))
	}

	limited, _ := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit: got %d, want 2", len(limited))
	}

	after, _ := repo.QueryLLMEvents(ctx, QueryOpts{After: 2})
	if len(after) != 2 {
		t.Errorf("after: got %d, want 2", len(after))
	}

	future, _ := repo.QueryLLMEvents(ctx, QueryOpts{From: time.Now().Add(time.Hour)})
	if len(future) != 0 {
		t.Errorf("from filter: got %d, want 0", len(future))
	}
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	rows := []LLMRequestEventData{
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "question-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 100},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "question-gen", InputTokens: 200, OutputTokens: 70, LatencyMs: 300},
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "raw-text", InputTokens: 10, OutputTokens: 5, LatencyMs: 50},
	}
	for _, r := range rows {
		if err := repo.AppendLLMRequest(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("expected 2 purposes, got %d", len(byPurpose))
	}
	top := byPurpose[0]
	if top.Purpose != "question-gen" || top.Calls != 2 || top.InputTokens != 300 || top.OutputTokens != 120 || top.AvgLatencyMs != 200 {
		t.Errorf("unexpected aggregate: %+v", top)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("by model: %v", err)
	}
	if byModel[0].Model != "gpt-4o-mini" || byModel[1].Model != "gemini-2.5-flash" {
		t.Errorf("unexpected model order: %+v", byModel)
	}
}

func TestGenerationRunsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	want := GenerationRunData{
		RunID:        "3f1c",
		QuestionType: "MTL",
		Requested:    5,
		Concurrency:  2,
		Succeeded:    3,
		Failed:       1,
		Cancelled:    1,
		DurationMs:   4200,
	}
	if err := repo.AppendGenerationRun(ctx, want); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendGenerationRun(ctx, want); err == nil {
		t.Fatal("expected duplicate run id to be rejected")
	}

	runs, err := repo.QueryGenerationRuns(ctx, QueryOpts{Limit: 5})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].GenerationRunData != want {
		t.Errorf("got %+v, want %+v", runs[0].GenerationRunData, want)
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("QUIZGEN_DB", filepath.Join(dir, "custom", "q.db"))
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if p != filepath.Join(dir, "custom", "q.db") {
		t.Errorf("path = %q", p)
	}

	t.Setenv("QUIZGEN_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if p != filepath.Join(dir, "quizgen", "quizgen.db") {
		t.Errorf("path = %q", p)
	}
}
