package voting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voteflow/internal/metrics"
	"github.com/BaSui01/voteflow/llm"
)

// run is the per-run scheduler state. All folding into State and the
// subsequent winner check happen on the run goroutine, one completion at a
// time — never two completions reasoning about the tally concurrently.
type run struct {
	engine       *Engine
	req          Request
	k            int
	canonicalize Canonicalizer
	state        *State
	ctrl         *Controller
	cancel       context.CancelFunc
	logger       *zap.Logger
}

// attemptResult is what one sample attempt contributes to the run.
type attemptResult struct {
	candidate string
	outcome   metrics.SampleOutcome
	skipped   bool // short-circuited before contacting the backend
	cancelled bool // aborted mid-flight; must be discarded, never folded
}

// runWaves issues batch waves until the controller terminates, the sample
// budget is exhausted, or the caller's context is done. The budget counts
// completed samples; skipped and cancelled attempts consume nothing.
func (r *run) runWaves(ctx context.Context, temperature float32) {
	remaining := r.engine.opts.MaxRounds - r.state.TotalSamples

	for remaining > 0 && !r.ctrl.Terminated() && ctx.Err() == nil {
		size := r.engine.opts.BatchSize
		if size > remaining {
			size = remaining
		}
		r.state.BatchRounds++
		if r.engine.rt.Metrics != nil {
			r.engine.rt.Metrics.RecordBatchRound()
		}

		remaining -= r.wave(ctx, size, temperature)
	}
}

// wave launches up to size concurrent attempts and folds their results.
// With early termination enabled, completions fold as they arrive and a
// winning fold cancels everything still in flight; otherwise the whole wave
// completes before any folding, so totals stay exact regardless of who wins.
// Returns the number of results folded into the state.
func (r *run) wave(ctx context.Context, size int, temperature float32) int {
	early := r.engine.opts.EarlyTermination

	results := make(chan attemptResult, size)
	launched := 0
	for i := 0; i < size; i++ {
		if early && r.ctrl.Terminated() {
			break // not-yet-dispatched attempts are skipped outright
		}
		launched++
		go func() {
			results <- r.attempt(ctx, temperature)
		}()
	}

	folded := 0

	if early {
		for received := 0; received < launched; received++ {
			res := <-results
			if res.skipped || res.cancelled {
				continue
			}
			if r.ctrl.Terminated() {
				// Late arrival after the winner was set: actively
				// discarded, not counted.
				continue
			}
			folded++
			if r.fold(res) {
				r.state.EarlyTerminated = true
				r.cancel()
			}
		}
		return folded
	}

	buffered := make([]attemptResult, 0, launched)
	for received := 0; received < launched; received++ {
		buffered = append(buffered, <-results)
	}
	for _, res := range buffered {
		if res.skipped || res.cancelled {
			continue
		}
		folded++
		// Winner check runs for bookkeeping only; the wave loop exits at
		// the next boundary.
		r.fold(res)
	}
	return folded
}

// fold counts one completed attempt into the state and, for a valid vote,
// invokes the margin check. Returns true when this fold set the winner.
func (r *run) fold(res attemptResult) bool {
	r.state.TotalSamples++
	if res.outcome != metrics.OutcomeValid {
		r.state.RedFlagged++
		return false
	}

	r.state.ValidSamples++
	r.state.Tally.Add(res.candidate)
	return r.ctrl.CheckAndSetWinner(res.candidate, r.state.Tally, r.k)
}

// attempt performs one gated sampler call and classifies the result.
func (r *run) attempt(ctx context.Context, temperature float32) attemptResult {
	e := r.engine

	if e.opts.EarlyTermination && r.ctrl.Terminated() {
		return attemptResult{skipped: true}
	}

	start := time.Now()
	result, err := e.rt.Sampler.Sample(ctx, &llm.SampleRequest{
		TraceID:     r.state.RunID,
		Model:       r.req.Model,
		System:      r.req.System,
		Prompt:      r.req.Query,
		Temperature: temperature,
		MaxTokens:   e.opts.MaxTokensThreshold + maxTokensHeadroom,
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			r.record(metrics.OutcomeCancelled, elapsed, 0)
			return attemptResult{cancelled: true}
		}
		r.logger.Debug("sample failed", zap.Error(err))
		r.record(metrics.OutcomeBackendError, elapsed, 0)
		return attemptResult{outcome: metrics.OutcomeBackendError}
	}

	if flag := CheckRedFlags(result.Text, result.Tokens, e.opts.MaxTokensThreshold); !flag.Valid {
		r.logger.Debug("sample red-flagged", zap.String("reason", flag.Reason))
		r.record(metrics.OutcomeRedFlagged, elapsed, result.Tokens)
		return attemptResult{outcome: metrics.OutcomeRedFlagged}
	}

	candidate := r.canonicalize(result.Text)
	if candidate == "" {
		r.record(metrics.OutcomeRedFlagged, elapsed, result.Tokens)
		return attemptResult{outcome: metrics.OutcomeRedFlagged}
	}

	r.record(metrics.OutcomeValid, elapsed, result.Tokens)
	return attemptResult{candidate: candidate, outcome: metrics.OutcomeValid}
}

func (r *run) record(outcome metrics.SampleOutcome, elapsed time.Duration, tokens int) {
	if r.engine.rt.Metrics != nil {
		r.engine.rt.Metrics.RecordSample(r.engine.rt.Sampler.Name(), r.req.Model, outcome, elapsed, tokens)
	}
}
