package voting

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/voteflow/internal/metrics"
	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/llm/cache"
)

// 超出红旗阈值的余量：请求上限略高于阈值，让超长回答真实出现并被红旗
// 捕获，而不是被后端静默截断成看似合格的回答。
const maxTokensHeadroom = 100

// Canonicalizer reduces raw generated text to the key used for vote
// counting. Implementations must be pure, total and deterministic.
type Canonicalizer func(text string) string

// Runtime bundles the dependencies shared by voting runs. It is constructed
// explicitly and passed in, so tests can substitute fakes and multiple
// independent engines can coexist without hidden global coupling.
type Runtime struct {
	Sampler llm.Sampler
	Cache   *cache.ResponseCache // optional, for stats snapshots
	Metrics *metrics.Collector   // optional
	Logger  *zap.Logger
}

// Options carries the engine-level knobs.
type Options struct {
	DefaultK           int  `json:"default_k"`
	MaxTokensThreshold int  `json:"max_tokens_threshold"`
	MaxRounds          int  `json:"max_rounds"`
	BatchSize          int  `json:"batch_size"`
	EarlyTermination   bool `json:"early_termination"`
}

// DefaultOptions returns the stock engine parameters.
func DefaultOptions() Options {
	return Options{
		DefaultK:           3,
		MaxTokensThreshold: 750,
		MaxRounds:          50,
		BatchSize:          5,
		EarlyTermination:   true,
	}
}

// Request describes one voting run.
type Request struct {
	Query        string
	System       string
	Model        string
	K            int
	Temperature  float32
	Canonicalize Canonicalizer
}

// Engine drives first-to-ahead-by-k voting runs to completion.
type Engine struct {
	rt     *Runtime
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an Engine over the given runtime.
func NewEngine(rt *Runtime, opts Options) *Engine {
	logger := rt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultK < 1 {
		opts.DefaultK = 1
	}
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Engine{
		rt:     rt,
		opts:   opts,
		logger: logger.With(zap.String("component", "voting_engine")),
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Runtime returns the shared dependency handle.
func (e *Engine) Runtime() *Runtime { return e.rt }

// Run executes one full voting run: a deterministic zero-temperature first
// sample, then batch waves at the requested temperature until a margin
// winner emerges or the sample budget is exhausted, falling back to the
// plurality leader. Run never fails — an empty winner with zero valid
// samples is the total-failure signal, not an error.
func (e *Engine) Run(ctx context.Context, req Request) (string, *State) {
	start := time.Now()

	k := req.K
	if k < 1 {
		k = e.opts.DefaultK
	}
	canonicalize := req.Canonicalize
	if canonicalize == nil {
		canonicalize = strings.TrimSpace
	}

	state := &State{
		RunID: uuid.NewString(),
		Tally: NewTally(),
	}
	ctrl := NewController()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		engine:       e,
		req:          req,
		k:            k,
		canonicalize: canonicalize,
		state:        state,
		ctrl:         ctrl,
		cancel:       cancel,
		logger: e.logger.With(
			zap.String("run_id", state.RunID),
			zap.String("model", req.Model)),
	}

	// Deterministic first sample: a cheap single shot that wins outright
	// when k=1, or seeds the tally.
	first := r.attempt(runCtx, 0)
	if !first.cancelled && !first.skipped {
		if r.fold(first) {
			state.EarlyTerminated = true
		}
	}

	if !ctrl.Terminated() {
		r.runWaves(runCtx, req.Temperature)
	}

	state.Elapsed = time.Since(start)
	winner := r.resolveWinner()

	r.logger.Info("voting run finished",
		zap.Int("total_samples", state.TotalSamples),
		zap.Int("valid_samples", state.ValidSamples),
		zap.Int("red_flagged", state.RedFlagged),
		zap.Int("batch_rounds", state.BatchRounds),
		zap.Int("candidates", state.Tally.Len()),
		zap.Bool("early_terminated", state.EarlyTerminated),
		zap.Duration("elapsed", state.Elapsed))

	return winner, state
}

// resolveWinner prefers the margin winner, then the plurality leader, then
// gives up with an empty winner.
func (r *run) resolveWinner() string {
	e := r.engine

	if w, ok := r.ctrl.Winner(); ok {
		if e.rt.Metrics != nil {
			e.rt.Metrics.RecordRun(r.req.Model, metrics.RunMargin, r.state.Elapsed)
		}
		return w
	}

	if leader, n := r.state.Tally.Leader(); n > 0 {
		r.ctrl.ForceTerminate(leader)
		if e.rt.Metrics != nil {
			e.rt.Metrics.RecordRun(r.req.Model, metrics.RunPlurality, r.state.Elapsed)
		}
		return leader
	}

	if e.rt.Metrics != nil {
		e.rt.Metrics.RecordRun(r.req.Model, metrics.RunEmpty, r.state.Elapsed)
	}
	return ""
}
