package xlog

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Default 返回进程级 Logger（stderr、Info、text），首次调用时创建。
//
// 供未注入 Logger 的组件兜底，服务端推荐显式注入。
var Default = sync.OnceValue(func() Logger {
	// 默认参数不会失败
	logger, _, _ := New().Build()
	return logger
})

// Nop 返回丢弃全部输出的 Logger。
func Nop() Logger {
	return &xlogger{
		handler:    slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}),
		errorCount: new(atomic.Uint64),
	}
}

// OrDefault 返回 l，l 为 nil 时返回 [Default]。
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
