package xtrigger

import (
	"context"
	"time"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// Func 任务回调。
//
// 返回的错误与 panic 只会被记录，不会中断调度循环。
// ctx 来自 [WithBaseContext]，设置了 [WithTimeout] 时带超时。
type Func func(ctx context.Context) error

// Handle 已构建的任务句柄，由注册表持有。
type Handle interface {
	xtask.Handle

	// Name 任务名
	Name() string
	// Kind 任务类型
	Kind() xtask.Kind
	// Start 开始调度，已运行时为空操作
	Start()
	// IsRunning 是否处于调度中
	IsRunning() bool
	// LastFireTime 最近一次触发时间，从未触发时为零值
	LastFireTime() time.Time
}

// RunInfo 单次执行的描述，传给 [Hook]。
type RunInfo struct {
	Kind        xtask.Kind
	Name        string
	RunID       int64
	ScheduledAt time.Time
}

// Hook 执行钩子。
//
// BeforeRun 按注册顺序执行，可返回派生 context；
// AfterRun 按注册逆序执行。
type Hook interface {
	BeforeRun(ctx context.Context, info RunInfo) context.Context
	AfterRun(ctx context.Context, info RunInfo, duration time.Duration, err error)
}

// HookFuncs 以函数形式实现 [Hook]，nil 字段跳过。
type HookFuncs struct {
	Before func(ctx context.Context, info RunInfo) context.Context
	After  func(ctx context.Context, info RunInfo, duration time.Duration, err error)
}

// BeforeRun 实现 [Hook]。
func (h HookFuncs) BeforeRun(ctx context.Context, info RunInfo) context.Context {
	if h.Before == nil {
		return ctx
	}
	if next := h.Before(ctx, info); next != nil {
		return next
	}
	return ctx
}

// AfterRun 实现 [Hook]。
func (h HookFuncs) AfterRun(ctx context.Context, info RunInfo, duration time.Duration, err error) {
	if h.After != nil {
		h.After(ctx, info, duration, err)
	}
}

// DayMode 日与星期字段的组合方式。
type DayMode int

const (
	// DayModeOR 日或星期任一匹配即可（cron 惯例，默认）
	DayModeOR DayMode = iota
	// DayModeAND 日与星期必须同时匹配
	DayModeAND
)

// String 实现 fmt.Stringer。
func (m DayMode) String() string {
	if m == DayModeAND {
		return "and"
	}
	return "or"
}

// CronTime cron 任务的触发时间：表达式或某个绝对时刻。
type CronTime struct {
	pattern string
	at      time.Time
}

// Pattern 以 cron 表达式描述触发时间，支持 5/6 字段（秒可选）、
// @hourly 等描述符与 @every <duration>。
func Pattern(expr string) CronTime {
	return CronTime{pattern: expr}
}

// At 在某个绝对时刻触发一次。
func At(t time.Time) CronTime {
	return CronTime{at: t}
}

// IsAt 是否为绝对时刻。
func (c CronTime) IsAt() bool {
	return !c.at.IsZero()
}

// String 返回表达式，绝对时刻以 RFC3339 表示。
func (c CronTime) String() string {
	if c.IsAt() {
		return c.at.Format(time.RFC3339)
	}
	return c.pattern
}
