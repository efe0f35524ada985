package questiongen

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/platform/logger"
	"github.com/abhisek/quizgen/internal/question"
)

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new LLMGenerator with the given provider and config.
// A nil log discards output.
func New(provider llm.Provider, cfg Config, log *logger.Logger) *LLMGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &LLMGenerator{provider: provider, config: cfg, log: log, sleep: sleepCtx}
}

// GenerateOne runs compose, send, and validate until a question passes or
// MaxAttempts is reached. Gateway and extraction errors are both retried.
// The context is checked before every attempt and during backoff.
func (g *LLMGenerator) GenerateOne(ctx context.Context, segment string, t question.Type) (*question.Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)
	tpl := TemplateFor(t)

	maxAttempts := max(g.config.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, g.cancelled(err, attempt-1)
		}

		q, err := g.attempt(ctx, tpl, segment, attempt)
		if err == nil {
			g.step(StateSucceeded, tpl.Type, attempt)
			return q, nil
		}
		lastErr = err

		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, g.cancelled(ctx.Err(), attempt)
		}
		if attempt == maxAttempts {
			break
		}

		delay := g.config.Backoff.Delay(attempt, err)
		g.log.Warn("question attempt failed, retrying",
			"type", tpl.Type, "attempt", attempt, "kind", KindOf(err), "delay", delay, "error", err)
		g.step(StateRetrying, tpl.Type, attempt)
		if err := g.sleep(ctx, delay); err != nil {
			return nil, g.cancelled(err, attempt)
		}
	}

	g.step(StateFailed, tpl.Type, maxAttempts)
	f := newFailure(lastErr, maxAttempts)
	g.log.Warn("question generation failed", "type", tpl.Type, "attempts", maxAttempts, "kind", f.Kind, "rule", f.Rule)
	return nil, f
}

func (g *LLMGenerator) attempt(ctx context.Context, tpl Template, segment string, n int) (*question.Question, error) {
	g.step(StateComposing, tpl.Type, n)
	req := llm.UserPrompt(systemPrompt, Compose(segment, tpl.Type))
	req.MaxTokens = g.config.MaxTokens
	req.Temperature = g.config.Temperature
	req.TopP = g.config.TopP
	req.Model = g.config.Model
	if g.config.StructuredOutput {
		req.Schema = tpl.Schema
	}

	g.step(StateSent, tpl.Type, n)
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	g.step(StateValidating, tpl.Type, n)
	q, err := Extract(resp.Text, tpl.Type)
	if err != nil {
		return nil, err
	}

	if g.config.ShuffleOrderingItems {
		q = shuffleOrdering(q)
	}
	return q, nil
}

func (g *LLMGenerator) step(s State, t question.Type, attempt int) {
	g.log.Debug("question generation", "state", s.String(), "type", t, "attempt", attempt)
}

func (g *LLMGenerator) cancelled(err error, attempts int) *Failure {
	g.step(StateFailed, "", attempts)
	return &Failure{
		Kind:     KindCancelled,
		Message:  "generation cancelled: " + err.Error(),
		Attempts: attempts,
		Err:      err,
	}
}

// shuffleOrdering returns a copy of q whose lot is shuffled when the
// display order equals the solution order. Other questions are returned
// unchanged.
func shuffleOrdering(q *question.Question) *question.Question {
	if q.Type != question.TypeOrdering || q.Lot == nil || len(q.Lot.Items) < 2 {
		return q
	}
	if !slices.Equal(q.Lot.IDs(), q.Solution.Order) {
		return q
	}

	c := q.Clone()
	items := c.Lot.Items
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	if slices.Equal(c.Lot.IDs(), c.Solution.Order) {
		items[0], items[1] = items[1], items[0]
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
