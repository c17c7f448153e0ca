// 版权所有 2025 VoteFlow Authors。保留所有权利。
// 本源代码的使用受 MIT 风格许可证约束。

/*
Package testutil 提供 VoteFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue，支持超时轮询等待条件满足
  - Mock 实现: mocks.MockSampler，支持脚本化响应序列、
    错误注入、延迟模拟与并发度观测

# 使用方式

	func TestEngine(t *testing.T) {
		ctx := testutil.TestContext(t)
		sampler := mocks.NewMockSampler().WithResponses("42", "42", "41")
		// ...
	}
*/
package testutil
