package council

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/voteflow/llm/cache"
	"github.com/BaSui01/voteflow/voting"
)

// Report 完整议事会报告：配置、投票指标、性能与评审决定。
type Report struct {
	Query      string              `json:"query"`
	NumVoters  int                 `json:"num_voters"`
	K          int                 `json:"k"`
	Models     Models              `json:"models"`
	Multi      *voting.MultiResult `json:"multi"`
	Decision   string              `json:"decision"`
	VotingTime time.Duration       `json:"voting_time"`
	JudgeTime  time.Duration       `json:"judge_time"`
	TotalTime  time.Duration       `json:"total_time"`
	Options    voting.Options      `json:"options"`
}

// Markdown renders the report for human consumption.
func (r *Report) Markdown() string {
	var b strings.Builder

	totalSamples, totalValid, totalFlagged := 0, 0, 0
	for _, v := range r.Multi.Voters {
		totalSamples += v.State.TotalSamples
		totalValid += v.State.ValidSamples
		totalFlagged += v.State.RedFlagged
	}

	b.WriteString("# Council Report\n\n")

	b.WriteString("## Configuration\n")
	fmt.Fprintf(&b, "- Voters: %d\n", r.NumVoters)
	fmt.Fprintf(&b, "- Margin k (first-to-ahead-by-k): %d\n", r.K)
	fmt.Fprintf(&b, "- Voter model: %s\n", r.Models.Voter)
	fmt.Fprintf(&b, "- Judge model: %s\n", r.Models.Judge)
	fmt.Fprintf(&b, "- Batch size: %d\n", r.Options.BatchSize)
	fmt.Fprintf(&b, "- Early termination: %t\n\n", r.Options.EarlyTermination)

	b.WriteString("## Voting Metrics\n")
	fmt.Fprintf(&b, "- Total samples: %d\n", totalSamples)
	fmt.Fprintf(&b, "- Valid samples: %d\n", totalValid)
	fmt.Fprintf(&b, "- Red-flagged (discarded): %d\n", totalFlagged)
	if totalSamples > 0 {
		fmt.Fprintf(&b, "- Red-flag rate: %.1f%%\n", float64(totalFlagged)/float64(totalSamples)*100)
	}
	b.WriteString("\n")

	b.WriteString("## Performance\n")
	fmt.Fprintf(&b, "- Total time: %.2fs\n", r.TotalTime.Seconds())
	fmt.Fprintf(&b, "- Voting time (parallel): %.2fs\n", r.VotingTime.Seconds())
	fmt.Fprintf(&b, "- Judge time: %.2fs\n", r.JudgeTime.Seconds())
	fmt.Fprintf(&b, "- Avg voter time: %.2fs\n", r.Multi.AvgVoterTime.Seconds())
	fmt.Fprintf(&b, "- Early terminations: %d/%d\n", r.Multi.EarlyTerminations, r.NumVoters)
	fmt.Fprintf(&b, "- Parallelism efficiency: %.1f%%\n", r.Multi.ParallelismEfficiency*100)
	fmt.Fprintf(&b, "- Cache hits: %d (rate: %.1f%%)\n\n", r.Multi.CacheStats.Hits, r.Multi.CacheStats.HitRate*100)

	b.WriteString("## Proposals Received\n")
	for _, p := range r.Multi.Proposals() {
		fmt.Fprintf(&b, "- Voter %d: %d chars, %d votes, %.2fs\n",
			p.VoterID, len(p.Winner), p.State.ValidSamples, p.State.Elapsed.Seconds())
	}
	b.WriteString("\n")

	b.WriteString("## Final Judge Decision\n\n")
	b.WriteString(r.Decision)
	b.WriteString("\n")

	return b.String()
}

// VotingReport 单次投票（无评审）的结果报告。
type VotingReport struct {
	Query      string        `json:"query"`
	K          int           `json:"k"`
	Winner     string        `json:"winner"`
	State      *voting.State `json:"state"`
	CacheStats cache.Stats   `json:"cache_stats"`
}

// Markdown renders the voting report.
func (r *VotingReport) Markdown() string {
	var b strings.Builder
	s := r.State

	fmt.Fprintf(&b, "# First-to-ahead-by-%d Voting Result\n\n", r.K)

	b.WriteString("## Metrics\n")
	fmt.Fprintf(&b, "- Total samples: %d\n", s.TotalSamples)
	fmt.Fprintf(&b, "- Valid samples: %d\n", s.ValidSamples)
	fmt.Fprintf(&b, "- Red-flagged: %d\n", s.RedFlagged)
	fmt.Fprintf(&b, "- Unique candidates: %d\n\n", s.Tally.Len())

	b.WriteString("## Performance\n")
	fmt.Fprintf(&b, "- Total time: %.2fs\n", s.Elapsed.Seconds())
	fmt.Fprintf(&b, "- Batch rounds: %d\n", s.BatchRounds)
	fmt.Fprintf(&b, "- Early terminated: %t\n", s.EarlyTerminated)
	if s.Elapsed > 0 {
		fmt.Fprintf(&b, "- Throughput: %.1f samples/s\n", float64(s.TotalSamples)/s.Elapsed.Seconds())
	}
	fmt.Fprintf(&b, "- Cache: %d hits / %d misses (rate: %.1f%%)\n\n",
		r.CacheStats.Hits, r.CacheStats.Misses, r.CacheStats.HitRate*100)

	b.WriteString("## Vote Distribution\n")
	votes := s.Votes()
	type cv struct {
		candidate string
		count     int
	}
	ranked := make([]cv, 0, len(votes))
	for c, n := range votes {
		ranked = append(ranked, cv{c, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].candidate < ranked[j].candidate
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	for i, rc := range ranked {
		fmt.Fprintf(&b, "- Candidate %d: %d votes\n", i+1, rc.count)
	}
	b.WriteString("\n")

	b.WriteString("## Winning Answer\n\n")
	b.WriteString(r.Winner)
	b.WriteString("\n")

	return b.String()
}
