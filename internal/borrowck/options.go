package borrowck

import (
	"errors"

	"borrowck/internal/dataflow"
	"borrowck/internal/mir"
)

// ErrAnalysisLimit marks a function whose dataflow did not converge within
// the configured number of block visits. It always wraps
// dataflow.ErrLimitExceeded as well.
var ErrAnalysisLimit = errors.New("analysis limit exceeded")

// Options tunes a borrow check run.
type Options struct {
	// MaxIterations bounds block visits per dataflow solve; values <= 0
	// select dataflow.DefaultMaxBlockVisits.
	MaxIterations int
	// SplitConstantIndices treats v[0] and v[1] as disjoint places.
	SplitConstantIndices bool
}

// Limit returns the block visit cap that a solve actually uses.
func (o Options) Limit() int {
	if o.MaxIterations <= 0 {
		return dataflow.DefaultMaxBlockVisits
	}
	return o.MaxIterations
}

func (o Options) solverOptions() dataflow.Options {
	return dataflow.Options{MaxBlockVisits: o.Limit()}
}

func (o Options) conflictPolicy() mir.ConflictPolicy {
	return mir.ConflictPolicy{SplitConstantIndices: o.SplitConstantIndices}
}
