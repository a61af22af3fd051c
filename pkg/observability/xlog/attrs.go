package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 key
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyTaskKind  = "task.kind"
	KeyTaskName  = "task.name"
	KeyRunID     = "task.run_id"
	KeyCount     = "count"
)

// Err 创建错误属性，err 为 nil 时返回空属性（slog 会忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "1m30s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 标识日志来源组件
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Count 计数属性
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Task 任务类型与名称属性
func Task(kind, name string) []slog.Attr {
	return []slog.Attr{
		slog.String(KeyTaskKind, kind),
		slog.String(KeyTaskName, name),
	}
}

// RunID 单次执行 ID 属性
func RunID(id int64) slog.Attr {
	return slog.Int64(KeyRunID, id)
}
