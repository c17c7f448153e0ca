// 版权所有 2025 VoteFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 council 是投票引擎之上的工具层：收集多个独立 voter 的提案，
交由评审模型合成最终决定，并渲染人类可读的报告。

# 概述

投票核心只检测统计一致性，不做任何语义判断；对答案质量的裁决全部
发生在本包：Consult 把 N 个 voter 的获胜提案格式化后提交给评审模型
（temperature=0）合成，SolveWithVoting 跳过评审直接返回统计赢家，
DecomposeTask 用小 k 低温投票产出任务分解 JSON。

# 核心能力

  - ExtractCodeOrAnswer：投票键规整——优先取代码块，其次取
    Answer/Solution 标记之后的内容。
  - ExtractJSON：从模型输出中剥离 JSON 文档。
  - Report / VotingReport：Markdown 报告，含配置、票数分布、
    红旗率、并行效率与缓存命中率。

# 失败语义

引擎层的 Run 永不失败；本层把"无任何 voter 收敛"和"评审调用失败"
作为应用级错误向上抛出。
*/
package council
