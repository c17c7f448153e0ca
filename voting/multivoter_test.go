package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voteflow/internal/limiter"
	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/testutil/mocks"
)

func TestRunMultiAggregation(t *testing.T) {
	sampler := mocks.NewMockSampler().WithResponses("42").WithDelay(time.Millisecond)
	engine := newTestEngine(sampler, Options{
		DefaultK:           1,
		MaxTokensThreshold: 750,
		MaxRounds:          10,
		BatchSize:          2,
		EarlyTermination:   true,
	})

	result := NewCoordinator(engine).RunMulti(context.Background(), Request{
		Query: "What is 6*7?",
		Model: "m",
	}, 3)

	require.Len(t, result.Voters, 3)
	for i, v := range result.Voters {
		assert.Equal(t, i+1, v.VoterID)
		assert.Equal(t, "42", v.Winner)
		require.NotNil(t, v.State)
		assert.True(t, v.State.EarlyTerminated)
	}

	assert.True(t, result.Converged())
	assert.Len(t, result.Proposals(), 3)
	assert.Equal(t, 3, result.EarlyTerminations)
	assert.Greater(t, result.WallTime, time.Duration(0))
	assert.GreaterOrEqual(t, result.MaxVoterTime, result.MinVoterTime)
	assert.GreaterOrEqual(t, result.AvgVoterTime, result.MinVoterTime)
	assert.LessOrEqual(t, result.AvgVoterTime, result.MaxVoterTime)
	assert.Greater(t, result.ParallelismEfficiency, 0.0)
}

func TestRunMultiAllVotersFail(t *testing.T) {
	sampler := mocks.NewMockSampler().WithError(errors.New("backend down"))
	engine := newTestEngine(sampler, Options{
		DefaultK:           3,
		MaxTokensThreshold: 750,
		MaxRounds:          2,
		BatchSize:          2,
		EarlyTermination:   true,
	})

	result := NewCoordinator(engine).RunMulti(context.Background(), Request{Query: "q", Model: "m"}, 2)

	assert.False(t, result.Converged())
	assert.Empty(t, result.Proposals())
	for _, v := range result.Voters {
		assert.Empty(t, v.Winner)
		assert.Zero(t, v.State.ValidSamples)
	}
}

func TestRunMultiClampVoterCount(t *testing.T) {
	sampler := mocks.NewMockSampler().WithResponses("42")
	engine := newTestEngine(sampler, Options{
		DefaultK:           1,
		MaxTokensThreshold: 750,
		MaxRounds:          5,
		BatchSize:          1,
		EarlyTermination:   true,
	})

	result := NewCoordinator(engine).RunMulti(context.Background(), Request{Query: "q", Model: "m"}, 0)
	assert.Len(t, result.Voters, 1)
}

// Voters share one limiter through the sampler decorator; total in-flight
// backend calls must never exceed its capacity no matter how many voters run.
func TestRunMultiSharedLimiterBoundsConcurrency(t *testing.T) {
	const capacity = 2

	inner := mocks.NewMockSampler().WithResponses("42").WithDelay(5 * time.Millisecond)
	gated := llm.NewCachedSampler(inner, nil, limiter.New(capacity), zap.NewNop())

	engine := NewEngine(&Runtime{
		Sampler: gated,
		Logger:  zap.NewNop(),
	}, Options{
		DefaultK:           2,
		MaxTokensThreshold: 750,
		MaxRounds:          6,
		BatchSize:          3,
		EarlyTermination:   true,
	})

	result := NewCoordinator(engine).RunMulti(context.Background(), Request{Query: "q", Model: "m"}, 4)

	assert.True(t, result.Converged())
	assert.LessOrEqual(t, inner.MaxInFlight(), capacity)
}
