package supervisor

import (
	"sync/atomic"

	"social-evaluation/internal/common/errors"
)

// DefaultMaxRounds bounds the delegation rounds of one run.
const DefaultMaxRounds = 10

// RoundBudget counts evaluator dispatches and reasoning calls of one run.
// It is safe for concurrent use by the evaluators it was handed to.
type RoundBudget struct {
	limit int64
	used  atomic.Int64
}

func NewRoundBudget(limit int) *RoundBudget {
	if limit <= 0 {
		limit = DefaultMaxRounds
	}
	return &RoundBudget{limit: int64(limit)}
}

// Charge consumes one round, failing with a DelegationError once the limit
// is reached.
func (b *RoundBudget) Charge() error {
	for {
		cur := b.used.Load()
		if cur >= b.limit {
			return errors.NewDelegationError(int(b.limit))
		}
		if b.used.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

func (b *RoundBudget) Used() int {
	return int(b.used.Load())
}

func (b *RoundBudget) Remaining() int {
	return int(b.limit - b.used.Load())
}
