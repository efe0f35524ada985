package questiongen

import (
	"math/rand/v2"
	"time"

	"github.com/abhisek/quizgen/internal/llm"
)

// Backoff is the wait between generation attempts. The zero Multiplier
// and Jitter give a fixed delay of InitialWait.
type Backoff struct {
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
	Jitter      bool          `yaml:"jitter"`
}

// FixedBackoff waits d between every attempt.
func FixedBackoff(d time.Duration) Backoff {
	return Backoff{InitialWait: d, MaxWait: d, Multiplier: 1}
}

// Delay returns the wait before the retry that follows the given
// 1-based failed attempt. A provider Retry-After hint overrides the
// computed delay but is still capped by MaxWait.
func (b Backoff) Delay(attempt int, err error) time.Duration {
	if ra, ok := llm.RetryAfterFrom(err); ok {
		if b.MaxWait > 0 && ra > b.MaxWait {
			return b.MaxWait
		}
		return ra
	}

	d := b.InitialWait
	if b.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * b.Multiplier)
			if b.MaxWait > 0 && d >= b.MaxWait {
				break
			}
		}
	}
	if b.MaxWait > 0 && d > b.MaxWait {
		d = b.MaxWait
	}
	if b.Jitter && d > 0 {
		// Full jitter in [d/2, d).
		half := d / 2
		d = half + time.Duration(rand.Int64N(int64(d-half)))
	}
	return d
}
