package questiongen

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/question"
)

// newTestGenerator returns a generator whose backoff records delays
// instead of sleeping.
func newTestGenerator(p llm.Provider, cfg Config) (*LLMGenerator, *[]time.Duration) {
	g := New(p, cfg, nil)
	var delays []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return g, &delays
}

func TestGenerateOne_FirstAttempt(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: validSOL})
	cfg := DefaultConfig()
	cfg.TopP = 0.9
	gen, delays := newTestGenerator(mock, cfg)

	q, err := gen.GenerateOne(context.Background(), photosynthesisSegment, question.TypeSingleChoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Solution.ItemID != "b" {
		t.Errorf("solution = %q", q.Solution.ItemID)
	}
	if mock.CallCount() != 1 || len(*delays) != 0 {
		t.Fatalf("calls = %d, delays = %v", mock.CallCount(), *delays)
	}

	req := mock.Calls[0]
	if req.System != systemPrompt {
		t.Error("system prompt not set")
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != Compose(photosynthesisSegment, question.TypeSingleChoice) {
		t.Error("user message is not the composed prompt")
	}
	if req.MaxTokens != cfg.MaxTokens || req.Temperature != cfg.Temperature || req.TopP != 0.9 {
		t.Errorf("sampling parameters not forwarded: %+v", req)
	}
	if req.Schema != nil {
		t.Error("schema should not be sent unless structured output is enabled")
	}
}

func TestGenerateOne_StructuredOutput(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: validMTL})
	cfg := DefaultConfig()
	cfg.StructuredOutput = true
	gen, _ := newTestGenerator(mock, cfg)

	if _, err := gen.GenerateOne(context.Background(), "segment", question.TypeMatching); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.Calls[0].Schema != TemplateFor(question.TypeMatching).Schema {
		t.Error("expected the matching schema on the request")
	}
}

func TestGenerateOne_RetriesExtractionErrors(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "I'd be happy to help!"},
		llm.MockResponse{Text: `{"questionType": "SML",}`},
		llm.MockResponse{Text: "Here it is:\n" + validSML},
	)
	gen, delays := newTestGenerator(mock, DefaultConfig())

	q, err := gen.GenerateOne(context.Background(), "segment", question.TypeMultipleChoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(q.Solution.ItemIDs, []string{"a", "b"}) {
		t.Errorf("solution = %v", q.Solution.ItemIDs)
	}
	if mock.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.CallCount())
	}
	if want := []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}; !slices.Equal(*delays, want) {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

func TestGenerateOne_RetriesGatewayErrors(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("connection reset")}},
		llm.MockResponse{Text: validOTL},
	)
	gen, _ := newTestGenerator(mock, DefaultConfig())

	if _, err := gen.GenerateOne(context.Background(), "segment", question.TypeOrdering); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestGenerateOne_ExhaustedExtraction(t *testing.T) {
	bad := `{"questionType": "SOL", "questionText": "q", "hintText": "", "timeLimit": 60, "points": 5, "lot": {"lotItems": [{"id": "a", "lotItemText": "A"}, {"id": "b", "lotItemText": "B"}]}, "solution": {"SOL": {"itemId": "z"}}}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: bad},
		llm.MockResponse{Text: bad},
		llm.MockResponse{Text: bad},
		llm.MockResponse{Text: validSOL},
	)
	gen, _ := newTestGenerator(mock, DefaultConfig())

	q, err := gen.GenerateOne(context.Background(), "segment", question.TypeSingleChoice)
	if q != nil {
		t.Fatal("expected no question")
	}
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	if f.Kind != KindSchemaViolation || f.Rule != RuleUnknownSolutionID {
		t.Errorf("kind/rule = %s/%s", f.Kind, f.Rule)
	}
	if f.Attempts != 3 || mock.CallCount() != 3 {
		t.Errorf("attempts = %d, calls = %d", f.Attempts, mock.CallCount())
	}
	if f.RawText != bad {
		t.Error("raw text not attached to failure")
	}
	var sv *SchemaViolationError
	if !errors.As(err, &sv) {
		t.Error("failure should unwrap to the last violation")
	}
}

func TestGenerateOne_ExhaustedGateway(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Responder = func(context.Context, llm.Request) llm.MockResponse {
		return llm.MockResponse{Err: &llm.ErrTimeout{After: time.Second, Err: context.DeadlineExceeded}}
	}
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	gen, _ := newTestGenerator(mock, cfg)

	_, err := gen.GenerateOne(context.Background(), "segment", question.TypeSingleChoice)
	if KindOf(err) != KindGateway {
		t.Fatalf("kind = %s, want gateway (%v)", KindOf(err), err)
	}
	var to *llm.ErrTimeout
	if !errors.As(err, &to) {
		t.Error("failure should unwrap to the timeout")
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestGenerateOne_HonorsRetryAfter(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: 2 * time.Second}},
		llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: time.Minute}},
		llm.MockResponse{Text: validSOL},
	)
	cfg := DefaultConfig()
	cfg.Backoff = Backoff{InitialWait: 100 * time.Millisecond, MaxWait: 10 * time.Second}
	gen, delays := newTestGenerator(mock, cfg)

	if _, err := gen.GenerateOne(context.Background(), "segment", question.TypeSingleChoice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []time.Duration{2 * time.Second, 10 * time.Second}; !slices.Equal(*delays, want) {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

func TestGenerateOne_CancelledBeforeStart(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: validSOL})
	gen, _ := newTestGenerator(mock, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.GenerateOne(ctx, "segment", question.TypeSingleChoice)
	if KindOf(err) != KindCancelled {
		t.Fatalf("kind = %s, want cancelled", KindOf(err))
	}
	if mock.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", mock.CallCount())
	}
}

func TestGenerateOne_CancelledDuringBackoff(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "no json"},
		llm.MockResponse{Text: validSOL},
	)
	gen := New(mock, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	gen.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := gen.GenerateOne(ctx, "segment", question.TypeSingleChoice)
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindCancelled {
		t.Fatalf("expected cancelled failure, got %v", err)
	}
	if f.Attempts != 1 || mock.CallCount() != 1 {
		t.Errorf("attempts = %d, calls = %d", f.Attempts, mock.CallCount())
	}
}

func TestGenerateOne_ShufflesSolvedOrdering(t *testing.T) {
	// Lot already listed in the answer order.
	solved := `{
  "questionType": "OTL",
  "questionText": "Order the steps.",
  "lot": {"lotItems": [
    {"id": "s1", "lotItemText": "Light is absorbed"},
    {"id": "s2", "lotItemText": "Water is split"},
    {"id": "s3", "lotItemText": "Sugar is made"}
  ]},
  "solution": {"OTL": {"orders": [{"itemId": "s1"}, {"itemId": "s2"}, {"itemId": "s3"}]}},
  "hintText": "",
  "timeLimit": 300,
  "points": 20
}`
	for range 20 {
		mock := llm.NewMockProvider(llm.MockResponse{Text: solved})
		gen, _ := newTestGenerator(mock, DefaultConfig())

		q, err := gen.GenerateOne(context.Background(), "segment", question.TypeOrdering)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slices.Equal(q.Lot.IDs(), q.Solution.Order) {
			t.Fatalf("lot %v still in solution order", q.Lot.IDs())
		}
		if !slices.Equal(q.Solution.Order, []string{"s1", "s2", "s3"}) {
			t.Fatalf("solution changed: %v", q.Solution.Order)
		}
	}
}

func TestGenerateOne_ShuffleDisabled(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: validOTL})
	cfg := DefaultConfig()
	cfg.ShuffleOrderingItems = false
	gen, _ := newTestGenerator(mock, cfg)

	q, err := gen.GenerateOne(context.Background(), "segment", question.TypeOrdering)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(q.Lot.IDs(), []string{"s3", "s1", "s2"}) {
		t.Errorf("lot reordered: %v", q.Lot.IDs())
	}
}

func TestBackoffDelay(t *testing.T) {
	fixed := FixedBackoff(500 * time.Millisecond)
	for attempt := 1; attempt <= 3; attempt++ {
		if d := fixed.Delay(attempt, errors.New("x")); d != 500*time.Millisecond {
			t.Errorf("fixed attempt %d: %s", attempt, d)
		}
	}

	exp := Backoff{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if d := exp.Delay(i+1, nil); d != w {
			t.Errorf("exponential attempt %d: %s, want %s", i+1, d, w)
		}
	}

	jit := Backoff{InitialWait: time.Second, MaxWait: time.Second, Jitter: true}
	for range 50 {
		d := jit.Delay(1, nil)
		if d < 500*time.Millisecond || d >= time.Second {
			t.Fatalf("jittered delay %s out of range", d)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"hot temperature", func(c *Config) { c.Temperature = 2.5 }},
		{"top_p above one", func(c *Config) { c.TopP = 1.5 }},
		{"negative wait", func(c *Config) { c.Backoff.InitialWait = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if cfg.Validate() == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateComposing:  "composing",
		StateSent:       "sent",
		StateValidating: "validating",
		StateRetrying:   "retrying",
		StateSucceeded:  "succeeded",
		StateFailed:     "failed",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
