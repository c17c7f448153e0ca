// 版权所有 2025 VoteFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 voting 实现 first-to-ahead-by-k 投票共识引擎：对同一问题发起大量
低成本独立采样，通过统计一致性收敛到单一答案，而不信任任何一次生成。

# 概述

每个 Run 先发起一次 temperature=0 的确定性采样（k=1 时可直接获胜），
随后以并发批次波（batch wave）在指定温度下持续采样。每个完成的有效
样本立即计入票箱并触发领先裕度检查；一旦某候选领先所有对手至少 k 票，
立即宣布获胜并取消剩余在途请求。预算耗尽仍无裕度赢家时退回多数票
（plurality fallback），完全无有效样本时返回空赢家——Run 永不失败。

# 核心模型

  - Tally：单 Run 票箱，显式 get-or-zero 访问，记录插入顺序使平票
    稳定地判给先插入的候选。
  - Controller：获胜判定的互斥核心，terminated 仅发生一次 false→true
    跃迁；CheckAndSetWinner 与 ForceTerminate 全局恰有一次成功。
  - CheckRedFlags：表面有效性过滤（超长、空白），不做语义判断。
  - Engine：驱动单次完整投票 Run，返回 (winner, State)。
  - Coordinator：并发运行 N 个相互独立的 Run 并聚合耗时与命中率指标。

# 并发与资源模型

所有采样调用经由 Runtime 中共享的 CachedSampler 过程级限流闸门，
无论同时有多少 voter 活跃，后端负载都有上界。取消是尽力而为的：
已终止 Run 的未派发尝试直接跳过，在途尝试被取消，其结果一律丢弃
而不计入任何计数器——被取消不同于完成但无效。

# 使用方式

	rt := &voting.Runtime{Sampler: sampler, Cache: respCache, Logger: logger}
	engine := voting.NewEngine(rt, voting.DefaultOptions())

	winner, state := engine.Run(ctx, voting.Request{
	    Query:       "...",
	    System:      systemPrompt,
	    Model:       "claude-haiku-4-5",
	    K:           3,
	    Temperature: 0.7,
	})

	multi := voting.NewCoordinator(engine).RunMulti(ctx, req, 3)
*/
package voting
