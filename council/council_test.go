package council

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/testutil/mocks"
	"github.com/BaSui01/voteflow/voting"
)

const (
	voterModel = "cheap-voter"
	judgeModel = "strong-judge"
)

func newTestCouncil(sampler *mocks.MockSampler) *Council {
	engine := voting.NewEngine(&voting.Runtime{
		Sampler: sampler,
		Logger:  zap.NewNop(),
	}, voting.Options{
		DefaultK:           1,
		MaxTokensThreshold: 750,
		MaxRounds:          10,
		BatchSize:          2,
		EarlyTermination:   true,
	})
	return New(engine, Models{Voter: voterModel, Judge: judgeModel}, 0.7, nil)
}

func TestConsult(t *testing.T) {
	sampler := mocks.NewMockSampler().WithSampleFunc(
		func(_ context.Context, req *llm.SampleRequest, _ int) (*llm.SampleResult, error) {
			if req.Model == judgeModel {
				return &llm.SampleResult{Text: "## Analysis\nAll agree.\n## Decision\n42", Tokens: 20}, nil
			}
			return &llm.SampleResult{Text: "Answer: 42", Tokens: 5}, nil
		})

	c := newTestCouncil(sampler)
	report, err := c.Consult(context.Background(), "What is 6*7?", 3, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, report.NumVoters)
	assert.Equal(t, 1, report.K)
	assert.Len(t, report.Multi.Proposals(), 3)
	for _, p := range report.Multi.Proposals() {
		assert.Equal(t, "42", p.Winner, "canonical form strips the answer marker")
	}
	assert.Contains(t, report.Decision, "## Decision")

	// The judge call runs against the judge model, deterministically, with
	// headroom for a long synthesis.
	var judgeCalls int
	for _, call := range sampler.Calls() {
		if call.Model == judgeModel {
			judgeCalls++
			assert.Zero(t, call.Temperature)
			assert.Equal(t, 4096, call.MaxTokens)
			assert.Equal(t, JudgeSystemPrompt, call.System)
			assert.Contains(t, call.Prompt, "What is 6*7?")
			assert.Contains(t, call.Prompt, "PROPOSAL FROM MICRO-AGENT")
		}
	}
	assert.Equal(t, 1, judgeCalls)
}

func TestConsultClampsArguments(t *testing.T) {
	sampler := mocks.NewMockSampler().WithResponses("42")
	c := newTestCouncil(sampler)

	report, err := c.Consult(context.Background(), "q", 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumVoters)
	assert.Equal(t, 1, report.K)
}

func TestConsultNoProposals(t *testing.T) {
	sampler := mocks.NewMockSampler().WithError(errors.New("backend down"))
	c := newTestCouncil(sampler)

	_, err := c.Consult(context.Background(), "q", 2, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no micro-agent")
}

func TestConsultJudgeFailure(t *testing.T) {
	sampler := mocks.NewMockSampler().WithSampleFunc(
		func(_ context.Context, req *llm.SampleRequest, _ int) (*llm.SampleResult, error) {
			if req.Model == judgeModel {
				return nil, errors.New("judge unavailable")
			}
			return &llm.SampleResult{Text: "42", Tokens: 2}, nil
		})

	c := newTestCouncil(sampler)
	_, err := c.Consult(context.Background(), "q", 2, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge synthesis failed")
}

func TestSolveWithVoting(t *testing.T) {
	sampler := mocks.NewMockSampler().WithResponses("Answer: 42")
	c := newTestCouncil(sampler)

	report, err := c.SolveWithVoting(context.Background(), "What is 6*7?", 1)
	require.NoError(t, err)

	assert.Equal(t, "42", report.Winner)
	assert.Equal(t, 1, report.K)
	require.NotNil(t, report.State)
	assert.Equal(t, 1, report.State.ValidSamples)

	md := report.Markdown()
	assert.Contains(t, md, "First-to-ahead-by-1")
	assert.Contains(t, md, "## Winning Answer")
	assert.Contains(t, md, "42")
}

func TestSolveWithVotingNoConvergence(t *testing.T) {
	sampler := mocks.NewMockSampler().WithError(errors.New("backend down"))
	c := newTestCouncil(sampler)

	_, err := c.SolveWithVoting(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to converge")
}

func TestDecomposeTaskValidJSON(t *testing.T) {
	decomposition := "```json\n{\"task\": \"build scraper\", \"total_steps\": 2, \"steps\": []}\n```"
	sampler := mocks.NewMockSampler().WithResponses(decomposition)
	c := newTestCouncil(sampler)

	out, err := c.DecomposeTask(context.Background(), "build scraper")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "build scraper", parsed["task"])
	assert.Equal(t, float64(2), parsed["total_steps"])

	// Decomposition always runs at low temperature against the judge model.
	for _, call := range sampler.Calls() {
		assert.Equal(t, judgeModel, call.Model)
		assert.Equal(t, DecomposerSystemPrompt, call.System)
	}
}

func TestDecomposeTaskFallbackOnInvalidJSON(t *testing.T) {
	sampler := mocks.NewMockSampler().WithResponses("I cannot produce JSON today")
	c := newTestCouncil(sampler)

	out, err := c.DecomposeTask(context.Background(), "some task")
	require.NoError(t, err)

	var fallback Decomposition
	require.NoError(t, json.Unmarshal([]byte(out), &fallback))
	assert.Equal(t, "some task", fallback.Task)
	assert.Equal(t, "I cannot produce JSON today", fallback.RawResponse)
	assert.NotEmpty(t, fallback.Error)
	assert.NotZero(t, fallback.VotingStats["valid_samples"])
}

func TestReportMarkdown(t *testing.T) {
	sampler := mocks.NewMockSampler().WithSampleFunc(
		func(_ context.Context, req *llm.SampleRequest, _ int) (*llm.SampleResult, error) {
			if req.Model == judgeModel {
				return &llm.SampleResult{Text: "the verdict", Tokens: 3}, nil
			}
			return &llm.SampleResult{Text: "42", Tokens: 2}, nil
		})

	c := newTestCouncil(sampler)
	report, err := c.Consult(context.Background(), "q", 2, 1)
	require.NoError(t, err)

	md := report.Markdown()
	assert.Contains(t, md, "# Council Report")
	assert.Contains(t, md, "## Configuration")
	assert.Contains(t, md, "- Voters: 2")
	assert.Contains(t, md, "## Voting Metrics")
	assert.Contains(t, md, "## Performance")
	assert.Contains(t, md, "## Proposals Received")
	assert.Contains(t, md, "## Final Judge Decision")
	assert.Contains(t, md, "the verdict")
}
