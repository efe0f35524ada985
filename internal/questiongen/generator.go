package questiongen

import (
	"context"

	"github.com/abhisek/quizgen/internal/question"
)

// Generator produces one validated question from a transcript segment.
type Generator interface {
	// GenerateOne returns a question of type t grounded in segment, or a
	// *Failure describing the last error once attempts are exhausted.
	// Implementations must be safe for concurrent use.
	GenerateOne(ctx context.Context, segment string, t question.Type) (*question.Question, error)
}

// State is a step of a single generation.
type State int

const (
	StateComposing State = iota
	StateSent
	StateValidating
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateSent:
		return "sent"
	case StateValidating:
		return "validating"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
