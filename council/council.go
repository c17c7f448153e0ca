package council

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/voting"
)

// Models 选择投票与评审分别使用的模型。
type Models struct {
	Voter string `json:"voter"`
	Judge string `json:"judge"`
}

// Council is the tool surface over the voting engine: it collects proposals
// from independent voters, has a judge synthesize them, and renders reports.
// The engine below it never judges semantic correctness; all judgment lives
// here.
type Council struct {
	engine      *voting.Engine
	coordinator *voting.Coordinator
	models      Models
	temperature float32
	logger      *zap.Logger
}

// New creates a Council over the given engine.
func New(engine *voting.Engine, models Models, temperature float32, logger *zap.Logger) *Council {
	if logger == nil {
		logger = zap.NewNop()
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	return &Council{
		engine:      engine,
		coordinator: voting.NewCoordinator(engine),
		models:      models,
		temperature: temperature,
		logger:      logger.With(zap.String("component", "council")),
	}
}

// clamp keeps user-supplied counts inside sane bounds.
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Consult runs the full council: numVoters parallel voting runs over the
// query, then a judge synthesis over the surviving proposals. Fails only
// when no voter converged or the judge call itself fails.
func (c *Council) Consult(ctx context.Context, query string, numVoters, k int) (*Report, error) {
	numVoters = clamp(numVoters, 1, 10)
	k = clamp(k, 1, 10)

	start := time.Now()

	multi := c.coordinator.RunMulti(ctx, voting.Request{
		Query:        query,
		System:       VoterSystemPrompt,
		Model:        c.models.Voter,
		K:            k,
		Temperature:  c.temperature,
		Canonicalize: ExtractCodeOrAnswer,
	}, numVoters)
	votingTime := time.Since(start)

	proposals := multi.Proposals()
	if len(proposals) == 0 {
		return nil, fmt.Errorf("no micro-agent produced a valid proposal")
	}

	judgeStart := time.Now()
	decision, err := c.judge(ctx, query, proposals)
	if err != nil {
		return nil, fmt.Errorf("judge synthesis failed: %w", err)
	}

	report := &Report{
		Query:      query,
		NumVoters:  numVoters,
		K:          k,
		Models:     c.models,
		Multi:      multi,
		Decision:   decision,
		VotingTime: votingTime,
		JudgeTime:  time.Since(judgeStart),
		TotalTime:  time.Since(start),
		Options:    c.engine.Options(),
	}

	c.logger.Info("council consultation finished",
		zap.Int("voters", numVoters),
		zap.Int("proposals", len(proposals)),
		zap.Duration("voting_time", votingTime),
		zap.Duration("judge_time", report.JudgeTime))

	return report, nil
}

// judge sends the formatted proposals to the judge model at temperature 0.
func (c *Council) judge(ctx context.Context, query string, proposals []voting.VoterResult) (string, error) {
	formatted := ""
	for _, p := range proposals {
		formatted += fmt.Sprintf("=== PROPOSAL FROM MICRO-AGENT %d ===\n", p.VoterID)
		formatted += fmt.Sprintf("(converged with %d valid samples, %d discarded)\n\n", p.State.ValidSamples, p.State.RedFlagged)
		formatted += p.Winner + "\n\n"
	}

	prompt := fmt.Sprintf(`ORIGINAL QUESTION:
%s

MICRO-AGENT PROPOSALS:
%s
Analyze the proposals and provide your final decision following the judgment process.`, query, formatted)

	result, err := c.engine.Runtime().Sampler.Sample(ctx, &llm.SampleRequest{
		Model:       c.models.Judge,
		System:      JudgeSystemPrompt,
		Prompt:      prompt,
		Temperature: 0,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// SolveWithVoting answers a query with a single first-to-ahead-by-k run and
// no judge. Cheaper than Consult; suited to questions with one objective
// answer.
func (c *Council) SolveWithVoting(ctx context.Context, query string, k int) (*VotingReport, error) {
	k = clamp(k, 1, 10)

	winner, state := c.engine.Run(ctx, voting.Request{
		Query:        query,
		System:       VoterSystemPrompt,
		Model:        c.models.Voter,
		K:            k,
		Temperature:  c.temperature,
		Canonicalize: ExtractCodeOrAnswer,
	})
	if winner == "" {
		return nil, fmt.Errorf("voting failed to converge on an answer")
	}

	report := &VotingReport{
		Query:  query,
		K:      k,
		Winner: winner,
		State:  state,
	}
	if c.engine.Runtime().Cache != nil {
		report.CacheStats = c.engine.Runtime().Cache.Stats()
	}
	return report, nil
}

// Decomposition 是 DecomposeTask 的结构化输出。
type Decomposition struct {
	Task               string            `json:"task"`
	DecompositionDepth int               `json:"decomposition_depth,omitempty"`
	TotalSteps         int               `json:"total_steps,omitempty"`
	Steps              []json.RawMessage `json:"steps,omitempty"`

	// 兜底字段：模型输出无法解析成 JSON 时填充
	RawResponse string         `json:"raw_response,omitempty"`
	VotingStats map[string]int `json:"voting_stats,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// DecomposeTask breaks a task into atomic steps, using a small-k vote at
// low temperature for a consistent decomposition. The result is always a
// JSON document: parsed when the winner was valid JSON, a diagnostic
// wrapper otherwise.
func (c *Council) DecomposeTask(ctx context.Context, task string) (string, error) {
	winner, state := c.engine.Run(ctx, voting.Request{
		Query:        fmt.Sprintf("Decompose the following task into atomic steps:\n\n%s", task),
		System:       DecomposerSystemPrompt,
		Model:        c.models.Judge,
		K:            2, // 较小的 k：分解任务更确定
		Temperature:  0.3,
		Canonicalize: ExtractJSON,
	})

	var parsed map[string]any
	if err := json.Unmarshal([]byte(winner), &parsed); err == nil {
		pretty, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return "", err
		}
		return string(pretty), nil
	}

	fallback := Decomposition{
		Task:        task,
		RawResponse: winner,
		VotingStats: map[string]int{
			"total_samples": state.TotalSamples,
			"valid_samples": state.ValidSamples,
			"red_flagged":   state.RedFlagged,
		},
		Error: "response was not valid JSON",
	}
	pretty, err := json.MarshalIndent(fallback, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}
