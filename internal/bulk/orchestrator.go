package bulk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/abhisek/quizgen/internal/platform/logger"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/store"
)

const tracerName = "github.com/abhisek/quizgen/internal/bulk"

// Recorder persists run summaries. store.EventRepo satisfies it.
type Recorder interface {
	AppendGenerationRun(ctx context.Context, data store.GenerationRunData) error
}

// Orchestrator runs bulk requests in bounded batches over a Generator.
// It is safe for concurrent use; MaxInFlight is shared by all callers.
type Orchestrator struct {
	gen      questiongen.Generator
	cfg      Config
	log      *logger.Logger
	recorder Recorder
	gate     *semaphore.Weighted
	tracer   trace.Tracer
}

// New creates an Orchestrator. log and recorder may be nil.
func New(gen questiongen.Generator, cfg Config, log *logger.Logger, recorder Recorder) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.DefaultConcurrency < 1 {
		cfg.DefaultConcurrency = 1
	}
	o := &Orchestrator{
		gen:      gen,
		cfg:      cfg,
		log:      log,
		recorder: recorder,
		tracer:   otel.Tracer(tracerName),
	}
	if cfg.MaxInFlight > 0 {
		o.gate = semaphore.NewWeighted(int64(cfg.MaxInFlight))
	}
	return o
}

// Config returns the settings o was built with.
func (o *Orchestrator) Config() Config { return o.cfg }

// WithGenerator returns a copy of o that runs items on gen. The copy
// shares the admission gate and recorder with o.
func (o *Orchestrator) WithGenerator(gen questiongen.Generator) *Orchestrator {
	c := *o
	c.gen = gen
	return &c
}

type itemIndexKey struct{}

// ItemIndex returns the request index of the bulk item a generation
// belongs to.
func ItemIndex(ctx context.Context) (int, bool) {
	i, ok := ctx.Value(itemIndexKey{}).(int)
	return i, ok
}

// GenerateBulk produces req.Count outcomes in index order. Batches of at
// most the concurrency limit run one after another. ctx is checked
// between batches only: items already started finish, and indices not yet
// started get a cancelled failure. The error is non-nil only for an
// invalid request.
func (o *Orchestrator) GenerateBulk(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	if err := req.Validate(o.cfg); err != nil {
		return nil, err
	}
	limit := req.ConcurrencyLimit
	if limit == 0 {
		limit = o.cfg.DefaultConcurrency
	}
	limit = min(limit, req.Count)

	res := &Result{
		RunID:    uuid.NewString(),
		Type:     req.Type,
		Outcomes: make([]Outcome, req.Count),
	}

	ctx, span := o.tracer.Start(ctx, "bulk.generate", trace.WithAttributes(
		attribute.String("bulk.run_id", res.RunID),
		attribute.String("bulk.question_type", string(req.Type)),
		attribute.Int("bulk.count", req.Count),
		attribute.Int("bulk.concurrency", limit),
	))
	defer span.End()

	log := o.log.With("run_id", res.RunID, "type", req.Type)
	log.Info("bulk generation started", "count", req.Count, "concurrency", limit)

	start := time.Now()
	progress := &tracker{p: Progress{Total: req.Count}, fn: onProgress}

	// Items keep running after ctx is cancelled; only scheduling stops.
	work := context.WithoutCancel(ctx)

	for first := 0; first < req.Count; first += limit {
		if err := ctx.Err(); err != nil {
			o.cancelRemaining(res.Outcomes, first, err)
			progress.cancelled(req.Count - first)
			log.Warn("bulk generation cancelled", "started", first, "remaining", req.Count-first)
			break
		}

		last := min(first+limit, req.Count)
		var wg sync.WaitGroup
		for i := first; i < last; i++ {
			wg.Go(func() {
				out := o.runItem(work, req, i)
				res.Outcomes[i] = out
				progress.done(out)
			})
		}
		wg.Wait()
		span.AddEvent("batch done", trace.WithAttributes(attribute.Int("bulk.batch_end", last)))
	}

	res.Summary = summarize(res.Outcomes, time.Since(start))
	span.SetAttributes(
		attribute.Int("bulk.succeeded", res.Summary.Succeeded),
		attribute.Int("bulk.failed", res.Summary.Failed),
		attribute.Int("bulk.cancelled", res.Summary.Cancelled),
	)
	if res.Summary.Succeeded == 0 {
		span.SetStatus(codes.Error, "no question generated")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	log.Info("bulk generation finished",
		"succeeded", res.Summary.Succeeded,
		"failed", res.Summary.Failed,
		"cancelled", res.Summary.Cancelled,
		"duration_ms", res.Summary.DurationMs)

	o.record(work, res, limit)
	return res, nil
}

func (o *Orchestrator) runItem(ctx context.Context, req Request, i int) Outcome {
	ctx = context.WithValue(ctx, itemIndexKey{}, i)
	ctx, span := o.tracer.Start(ctx, "bulk.item", trace.WithAttributes(attribute.Int("bulk.index", i)))
	defer span.End()

	if o.gate != nil {
		// ctx is detached from cancellation, so this only waits.
		if err := o.gate.Acquire(ctx, 1); err != nil {
			return Outcome{Index: i, Failure: questiongen.AsFailure(err)}
		}
		defer o.gate.Release(1)
	}

	q, err := o.gen.GenerateOne(ctx, req.SegmentText, req.Type)
	if err == nil && q == nil {
		err = errors.New("generator returned no question")
	}
	if err != nil {
		f := questiongen.AsFailure(err)
		span.SetStatus(codes.Error, f.Message)
		span.SetAttributes(attribute.String("bulk.failure_kind", string(f.Kind)))
		o.log.Debug("bulk item failed", "index", i, "kind", f.Kind, "attempts", f.Attempts)
		return Outcome{Index: i, Failure: f}
	}
	span.SetStatus(codes.Ok, "")
	return Outcome{Index: i, Question: q}
}

func (o *Orchestrator) cancelRemaining(outcomes []Outcome, from int, cause error) {
	for i := from; i < len(outcomes); i++ {
		outcomes[i] = Outcome{Index: i, Failure: questiongen.Cancelled("not started: " + cause.Error())}
	}
}

func (o *Orchestrator) record(ctx context.Context, res *Result, limit int) {
	if o.recorder == nil {
		return
	}
	err := o.recorder.AppendGenerationRun(ctx, store.GenerationRunData{
		RunID:        res.RunID,
		QuestionType: string(res.Type),
		Requested:    res.Summary.Requested,
		Concurrency:  limit,
		Succeeded:    res.Summary.Succeeded,
		Failed:       res.Summary.Failed,
		Cancelled:    res.Summary.Cancelled,
		DurationMs:   res.Summary.DurationMs,
	})
	if err != nil {
		o.log.Warn("failed to record generation run", "run_id", res.RunID, "error", err)
	}
}

func summarize(outcomes []Outcome, elapsed time.Duration) Summary {
	s := Summary{Requested: len(outcomes), DurationMs: elapsed.Milliseconds()}
	for _, o := range outcomes {
		switch {
		case o.Question != nil:
			s.Succeeded++
		case o.Failure != nil && o.Failure.Kind == questiongen.KindCancelled:
			s.Cancelled++
		default:
			s.Failed++
		}
	}
	return s
}

// tracker serializes progress updates.
type tracker struct {
	mu sync.Mutex
	p  Progress
	fn ProgressFunc
}

func (t *tracker) done(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Completed++
	switch {
	case o.Question != nil:
		t.p.Succeeded++
	case o.Failure != nil && o.Failure.Kind == questiongen.KindCancelled:
		t.p.Cancelled++
	default:
		t.p.Failed++
	}
	t.emit()
}

func (t *tracker) cancelled(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Completed += n
	t.p.Cancelled += n
	t.emit()
}

func (t *tracker) emit() {
	if t.fn != nil {
		t.fn(t.p)
	}
}
