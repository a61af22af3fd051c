// Package xlog 基于 log/slog 的结构化日志。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 强制 context 传递，方法只接受 slog.Attr
//   - 自动注入 context 中携带的任务属性（EnrichHandler，默认启用）
//   - 兜底的 [Default] 与丢弃输出的 [Nop]
//
// # 创建 Logger
//
// Builder 为 first-error-wins：遇到第一个配置错误后，后续 Set 操作不再生效，
// 错误在 [Builder.Build] 时返回。
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xschedule.log").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// # Context 属性
//
// [WithContextAttrs] 把属性挂到 context 上，之后所有使用该 context 的日志
// 都会自动附带这些属性。调度器在每次任务执行前注入 task.kind、task.name
// 与 task.run_id，任务回调内的日志无需重复携带。
package xlog
