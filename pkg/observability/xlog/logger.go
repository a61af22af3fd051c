package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

var _ Logger = (*xlogger)(nil)

// xlogger Logger 接口的实现
type xlogger struct {
	handler    slog.Handler
	onError    func(error)
	errorCount *atomic.Uint64 // 派生 logger 共享
}

func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	l.handle(ctx, r)
}

// handle 写入记录。Handler 失败不向调用方传播，只计数并回调 onError。
func (l *xlogger) handle(ctx context.Context, r slog.Record) {
	err := l.handler.Handle(ctx, r)
	if err == nil {
		return
	}
	l.errorCount.Add(1)
	if l.onError == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.errorCount.Add(1)
		}
	}()
	l.onError(err)
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:    l.handler.WithAttrs(attrs),
		onError:    l.onError,
		errorCount: l.errorCount,
	}
}

// ErrorCount 返回 Handler 写入失败的累计次数。
func ErrorCount(l Logger) uint64 {
	if xl, ok := l.(*xlogger); ok {
		return xl.errorCount.Load()
	}
	return 0
}
