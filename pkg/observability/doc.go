// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转
//
// 任务执行的指标与追踪由 xtrigger.Observer 基于 OpenTelemetry 记录。
package observability
