package bulk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/questiongen"
)

// Request asks for Count questions of one type from one segment.
type Request struct {
	SegmentText      string        `json:"segmentText"`
	Type             question.Type `json:"questionType"`
	Count            int           `json:"count"`
	ConcurrencyLimit int           `json:"concurrencyLimit,omitempty"`
}

// Validate checks the request against cfg limits. A zero
// ConcurrencyLimit is allowed and means cfg.DefaultConcurrency.
func (r Request) Validate(cfg Config) error {
	switch {
	case strings.TrimSpace(r.SegmentText) == "":
		return errors.New("segment text is required")
	case r.Count < 1:
		return errors.New("count must be a positive integer")
	case cfg.MaxCount > 0 && r.Count > cfg.MaxCount:
		return fmt.Errorf("count must not exceed %d", cfg.MaxCount)
	case r.ConcurrencyLimit < 0:
		return errors.New("concurrency limit must not be negative")
	}
	return nil
}

// Status is the coarse result of one item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the result at one request index. Exactly one of Question
// and Failure is set.
type Outcome struct {
	Index    int
	Question *question.Question
	Failure  *questiongen.Failure
}

// Status reports whether the outcome holds a question.
func (o Outcome) Status() Status {
	if o.Question != nil {
		return StatusSuccess
	}
	return StatusFailure
}

// MarshalJSON encodes {"index", "status", "payload"} where payload is the
// question or the failure descriptor.
func (o Outcome) MarshalJSON() ([]byte, error) {
	var payload any = o.Failure
	if o.Question != nil {
		payload = o.Question
	}
	return json.Marshal(struct {
		Index   int    `json:"index"`
		Status  Status `json:"status"`
		Payload any    `json:"payload"`
	}{o.Index, o.Status(), payload})
}

// Summary counts outcomes by status.
type Summary struct {
	Requested  int   `json:"requested"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Cancelled  int   `json:"cancelled"`
	DurationMs int64 `json:"durationMs"`
}

// Result is the complete bulk result. Outcomes are in request order and
// len(Outcomes) equals the requested count.
type Result struct {
	RunID    string        `json:"runId"`
	Type     question.Type `json:"questionType"`
	Outcomes []Outcome     `json:"outcomes"`
	Summary  Summary       `json:"summary"`
}

// Questions returns the successful questions in index order.
func (r *Result) Questions() []*question.Question {
	var out []*question.Question
	for _, o := range r.Outcomes {
		if o.Question != nil {
			out = append(out, o.Question)
		}
	}
	return out
}

// Progress reports how many items have an outcome so far. Cancelled items
// count as completed.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Fraction returns Completed/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// ProgressFunc observes progress. Calls are serialized and Completed never
// decreases between calls. It runs on a worker goroutine and should return
// quickly.
type ProgressFunc func(Progress)
