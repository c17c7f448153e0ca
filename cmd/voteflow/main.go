// =============================================================================
// VoteFlow 主入口
// =============================================================================
// 命令行入口点，包含议会咨询、单次投票、任务分解与版本信息
//
// 使用方法:
//
//	voteflow consult "What is 6*7?"              # 多 voter 议会 + 评审
//	voteflow vote "What is 6*7?" --k 3           # 单次 first-to-ahead-by-k 投票
//	voteflow decompose "Build a web scraper"     # 任务分解
//	voteflow version                             # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voteflow"
	"github.com/BaSui01/voteflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "consult":
		runConsult(os.Args[2:])
	case "vote":
		runVote(os.Args[2:])
	case "decompose":
		runDecompose(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🗳️ consult 命令
// =============================================================================

func runConsult(args []string) {
	fs := flag.NewFlagSet("consult", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	voters := fs.Int("voters", 0, "Number of independent voters (default from config)")
	k := fs.Int("k", 0, "Victory margin (default from config)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall deadline")
	fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "consult requires a query")
		os.Exit(1)
	}

	vf, cfg := buildSystem(*configPath)
	defer vf.Logger.Sync()

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	numVoters := *voters
	if numVoters == 0 {
		numVoters = cfg.Voting.NumVoters
	}
	margin := *k
	if margin == 0 {
		margin = cfg.Voting.K
	}

	report, err := vf.Council.Consult(ctx, query, numVoters, margin)
	if err != nil {
		vf.Logger.Error("consult failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(report.Markdown())
}

// =============================================================================
// 🗳️ vote 命令
// =============================================================================

func runVote(args []string) {
	fs := flag.NewFlagSet("vote", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	k := fs.Int("k", 0, "Victory margin (default from config)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall deadline")
	fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "vote requires a query")
		os.Exit(1)
	}

	vf, cfg := buildSystem(*configPath)
	defer vf.Logger.Sync()

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	margin := *k
	if margin == 0 {
		margin = cfg.Voting.K
	}

	report, err := vf.Council.SolveWithVoting(ctx, query, margin)
	if err != nil {
		vf.Logger.Error("vote failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(report.Markdown())
}

// =============================================================================
// 🧩 decompose 命令
// =============================================================================

func runDecompose(args []string) {
	fs := flag.NewFlagSet("decompose", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall deadline")
	fs.Parse(args)

	task := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, "decompose requires a task description")
		os.Exit(1)
	}

	vf, _ := buildSystem(*configPath)
	defer vf.Logger.Sync()

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	plan, err := vf.Council.DecomposeTask(ctx, task)
	if err != nil {
		vf.Logger.Error("decompose failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(plan)
}

// =============================================================================
// 🔧 系统装配
// =============================================================================

func buildSystem(configPath string) (*voteflow.System, *config.Config) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	vf, err := voteflow.New(voteflow.WithConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to assemble system: %v\n", err)
		os.Exit(1)
	}

	vf.Logger.Info("VoteFlow ready",
		zap.String("version", Version),
		zap.String("provider", cfg.Provider.Kind),
		zap.String("voter_model", cfg.Models.Voter),
		zap.Int64("max_concurrent", vf.Limiter.Capacity()),
	)
	return vf, cfg
}

// signalContext 返回带超时且响应 SIGINT/SIGTERM 的上下文
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("VoteFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`VoteFlow - First-to-ahead-by-k Voting for LLM Sampling

Usage:
  voteflow <command> [options] <query>

Commands:
  consult    Run multiple independent voters and synthesize a judge verdict
  vote       Run a single first-to-ahead-by-k voting round
  decompose  Break a task into subtasks with voted-on structure
  version    Show version information
  help       Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)
  --k <n>           Victory margin (first-to-ahead-by-k)
  --timeout <d>     Overall deadline (default 10m)

Options for 'consult':
  --voters <n>      Number of independent voters

Examples:
  voteflow consult "What is the capital of France?"
  voteflow consult --voters 5 --k 2 "Implement binary search in Go"
  voteflow vote --k 3 "What is 6*7?"
  voteflow decompose "Build a web scraper for news sites"
  voteflow version`)
}
