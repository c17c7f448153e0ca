package voting

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/voteflow/llm/cache"
)

// VoterResult is one independent run's proposal.
type VoterResult struct {
	VoterID int    `json:"voter_id"`
	Winner  string `json:"winner"`
	State   *State `json:"state"`
}

// MultiResult aggregates N independent voting runs.
type MultiResult struct {
	Voters   []VoterResult `json:"voters"`
	WallTime time.Duration `json:"wall_time"`

	AvgVoterTime time.Duration `json:"avg_voter_time"`
	MinVoterTime time.Duration `json:"min_voter_time"`
	MaxVoterTime time.Duration `json:"max_voter_time"`

	// ParallelismEfficiency is the sum of per-voter times divided by wall
	// time divided by voter count: 1.0 under perfect overlap, lower under
	// contention for limiter slots.
	ParallelismEfficiency float64 `json:"parallelism_efficiency"`

	EarlyTerminations int         `json:"early_terminations"`
	CacheStats        cache.Stats `json:"cache_stats"`
}

// Converged reports whether at least one voter produced a non-empty winner.
// The caller decides how to surface aggregate failure; the engine never
// raises for "no consensus reached".
func (m *MultiResult) Converged() bool {
	for _, v := range m.Voters {
		if v.Winner != "" {
			return true
		}
	}
	return false
}

// Proposals returns the non-empty winners in voter order.
func (m *MultiResult) Proposals() []VoterResult {
	out := make([]VoterResult, 0, len(m.Voters))
	for _, v := range m.Voters {
		if v.Winner != "" {
			out = append(out, v)
		}
	}
	return out
}

// Coordinator runs several independent voting runs concurrently. The runs
// share nothing but the runtime's limiter and cache, so total backend load
// stays bounded regardless of how many voters are launched.
type Coordinator struct {
	engine *Engine
	logger *zap.Logger
}

// NewCoordinator creates a Coordinator over the given engine.
func NewCoordinator(engine *Engine) *Coordinator {
	return &Coordinator{
		engine: engine,
		logger: engine.logger.With(zap.String("component", "multi_voter")),
	}
}

// RunMulti launches numVoters independent runs of req and aggregates their
// winners and timing. Individual runs never fail, so neither does this.
func (c *Coordinator) RunMulti(ctx context.Context, req Request, numVoters int) *MultiResult {
	if numVoters < 1 {
		numVoters = 1
	}

	start := time.Now()
	voters := make([]VoterResult, numVoters)

	// 不让 errgroup 提前终止：每个 voter 都要跑完并收集结果。
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numVoters; i++ {
		i := i
		g.Go(func() error {
			winner, state := c.engine.Run(gctx, req)
			voters[i] = VoterResult{VoterID: i + 1, Winner: winner, State: state}
			return nil
		})
	}
	_ = g.Wait()

	result := &MultiResult{
		Voters:   voters,
		WallTime: time.Since(start),
	}
	c.aggregate(result)

	c.logger.Info("multi-voter round finished",
		zap.Int("voters", numVoters),
		zap.Int("early_terminations", result.EarlyTerminations),
		zap.Duration("wall_time", result.WallTime),
		zap.Float64("parallelism_efficiency", result.ParallelismEfficiency))

	return result
}

func (c *Coordinator) aggregate(result *MultiResult) {
	if c.engine.rt.Cache != nil {
		result.CacheStats = c.engine.rt.Cache.Stats()
	}
	if len(result.Voters) == 0 {
		return
	}

	var sum time.Duration
	min, max := result.Voters[0].State.Elapsed, result.Voters[0].State.Elapsed
	for _, v := range result.Voters {
		elapsed := v.State.Elapsed
		sum += elapsed
		if elapsed < min {
			min = elapsed
		}
		if elapsed > max {
			max = elapsed
		}
		if v.State.EarlyTerminated {
			result.EarlyTerminations++
		}
	}

	result.AvgVoterTime = sum / time.Duration(len(result.Voters))
	result.MinVoterTime = min
	result.MaxVoterTime = max
	if result.WallTime > 0 {
		result.ParallelismEfficiency = float64(sum) / float64(result.WallTime) / float64(len(result.Voters))
	}
}
