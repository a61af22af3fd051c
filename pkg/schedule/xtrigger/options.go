package xtrigger

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
)

// options 任务配置。
//
// 带 "cron" 标注的字段只对 [NewCron] 生效，其余三类任务共用。
type options struct {
	logger  xlog.Logger
	clock   clockwork.Clock
	baseCtx context.Context

	// cron
	timezone       string
	utcOffset      *int
	disabled       bool
	preventOverrun bool
	minInterval    time.Duration
	maxRuns        int
	dayMode        DayMode

	timeout         time.Duration
	retryAttempts   uint
	retryDelay      time.Duration
	breakerFailures uint32
	breakerCooldown time.Duration

	hooks    []Hook
	observer *Observer
	stats    *Stats
	ids      *RunIDs
	tracker  *Tracker
}

func defaultOptions() *options {
	return &options{
		clock:   clockwork.NewRealClock(),
		baseCtx: context.Background(),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.tracker == nil {
		o.tracker = NewTracker()
	}
	return o
}

// Option 任务配置选项
type Option func(*options)

// ===================== 通用选项 =====================

// WithLogger 设置日志记录器，默认 [xlog.Default]。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock 设置时钟，测试中注入 clockwork.FakeClock。
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBaseContext 设置回调 context 的父 context。
//
// 停止任务不会取消该 context，执行中的回调照常完成。
func WithBaseContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.baseCtx = ctx
		}
	}
}

// WithTimeout 设置单次执行超时，超时后取消回调 context。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry 回调失败时重试，attempts 为总尝试次数（含首次）。
//
// 用法：
//
//	xtrigger.NewInterval("sync", time.Minute, fn, xtrigger.WithRetry(3, time.Second))
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 1 {
			o.retryAttempts = attempts
			o.retryDelay = max(delay, 0)
		}
	}
}

// WithBreaker 连续失败 failures 次后熔断，cooldown 内的触发直接跳过。
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(o *options) {
		if failures > 0 {
			o.breakerFailures = failures
			o.breakerCooldown = cooldown
		}
	}
}

// WithHook 追加执行钩子。
func WithHook(h Hook) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// WithHooks 追加多个执行钩子。
func WithHooks(hooks ...Hook) Option {
	return func(o *options) {
		for _, h := range hooks {
			if h != nil {
				o.hooks = append(o.hooks, h)
			}
		}
	}
}

// WithObserver 设置 OpenTelemetry 观测器。
func WithObserver(obs *Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithStats 设置执行统计，多个任务可共享同一个 [Stats]。
func WithStats(s *Stats) Option {
	return func(o *options) {
		o.stats = s
	}
}

// WithRunIDs 为每次执行分配唯一 ID，写入日志属性与 span。
func WithRunIDs(ids *RunIDs) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithTracker 设置执行中计数器，多个任务共享以便统一等待。
func WithTracker(t *Tracker) Option {
	return func(o *options) {
		if t != nil {
			o.tracker = t
		}
	}
}

// ===================== cron 选项 =====================

// WithTimezone 以 IANA 时区解释表达式，与 [WithUTCOffset] 互斥。
func WithTimezone(name string) Option {
	return func(o *options) {
		o.timezone = name
	}
}

// WithUTCOffset 以固定 UTC 偏移（分钟）解释表达式，与 [WithTimezone] 互斥。
func WithUTCOffset(minutes int) Option {
	return func(o *options) {
		o.utcOffset = &minutes
	}
}

// WithDisabled 构建后不自动启动，需显式调用 Start。
func WithDisabled() Option {
	return func(o *options) {
		o.disabled = true
	}
}

// WithPreventOverrun 上一次执行未结束时跳过本次触发（不排队）。
func WithPreventOverrun() Option {
	return func(o *options) {
		o.preventOverrun = true
	}
}

// WithMinInterval 距上次触发不足 d 时跳过本次触发。
func WithMinInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minInterval = d
		}
	}
}

// WithMaxRuns 累计触发 n 次后停止，n <= 0 表示不限制。
func WithMaxRuns(n int) Option {
	return func(o *options) {
		o.maxRuns = max(n, 0)
	}
}

// WithDayMode 设置日与星期字段的组合方式。
func WithDayMode(mode DayMode) Option {
	return func(o *options) {
		o.dayMode = mode
	}
}
