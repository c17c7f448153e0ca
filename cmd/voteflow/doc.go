// Copyright (c) VoteFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 VoteFlow 命令行程序入口。

# 概述

cmd/voteflow 是 VoteFlow 投票引擎的可执行入口，提供议会咨询、
单次投票、任务分解和版本查询等子命令。程序支持 YAML 配置文件加载、
环境变量覆盖以及结构化日志（zap）。

# 主要能力

  - 子命令：consult（多 voter 议会 + 评审合成）、vote（单次
    first-to-ahead-by-k 投票）、decompose（任务分解）、version
  - 配置优先级：默认值 → YAML 文件 → VOTEFLOW_* 环境变量
  - 信号处理：SIGINT/SIGTERM 触发上下文取消，在途采样被丢弃
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
