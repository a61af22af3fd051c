package xlog

import (
	"context"
	"log/slog"
)

// Logger 调度组件共用的日志接口。
//
// 每个方法都带 context，[EnrichHandler] 从中取出任务属性
// （task.kind、task.name、task.run_id）附加到记录上。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 派生带固定属性的 Logger，如调度器按组件名派生。
	With(attrs ...slog.Attr) Logger
}
