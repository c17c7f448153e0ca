// 版权所有 2025 VoteFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供确定性采样输出的 TTL+容量双约束缓存。

# 概述

只有 temperature=0 的请求是确定性的，才允许进入缓存；温度大于零的
请求 Get/Put 一律空操作——重放随机化输出在语义上是错误的。缓存键由
(model, system, prompt) 经 SHA-256 派生。

# 淘汰策略

写入时若已达容量：先清除所有过期条目；仍满则按时间戳批量淘汰最旧的
一半。批量淘汰用精度换取高负载下更少的淘汰遍历次数。

# 多级结构

本地内存层提供全部引擎所需语义；可选的 Redis 二级层（WithRedis）为
write-through、尽力而为——Redis 故障只会退化为纯本地缓存，绝不污染
返回内容，也绝不阻塞投票。

# 可观测性

Stats 暴露 {size, hits, misses, hitRate}，命中/未命中计数在进程生命
周期内单调递增。
*/
package cache
