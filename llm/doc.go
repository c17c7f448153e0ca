// 版权所有 2025 VoteFlow Authors。保留所有权利。
// 本源代码的使用受 MIT 风格许可证约束。

/*
包 llm 提供统一的大语言模型采样层，包括 Sampler 抽象、错误语义、
确定性响应缓存装饰器与 token 计数。

# 概述

本包目标是屏蔽不同模型服务商在接口、鉴权和错误语义上的差异，
对投票引擎暴露一致的单轮采样模型。投票引擎只依赖 [Sampler]
接口，不关心底层是 Anthropic、OpenAI 兼容网关还是测试 Mock。

# 核心接口

  - [Sampler]：单轮采样接口，提供 Sample / Name

# 核心类型

  - [SampleRequest] / [SampleResult]：采样请求与结果
  - [CachedSampler]：装饰器，组合确定性缓存（temperature == 0 才可缓存）
    与全进程并发限流；缓存命中不占用限流槽位
  - [Error]：带错误码、可重试标记与上游状态码的统一错误类型

# 错误语义

所有后端错误统一收敛为 [Error]，通过 [ErrorCode] 分类
（超时、限流、认证失败、上游不可用等），Retryable 标记指示
调用方是否值得重试。投票引擎把后端错误当作一次失败样本处理，
不会让单次失败中断整个投票。

# 子包

  - cache：TTL + 容量双约束的确定性响应缓存，可选 Redis 二级层
  - tokenizer：token 计数（tiktoken 精确计数 + 启发式估算回退）
*/
package llm
