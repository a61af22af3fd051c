package xschedule

import (
	"github.com/jonboulle/clockwork"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// options 调度器配置
type options struct {
	logger   xlog.Logger
	clock    clockwork.Clock
	observer *xtrigger.Observer
	stats    *xtrigger.Stats
	ids      *xtrigger.RunIDs
	taskOpts []xtrigger.Option
}

func defaultOptions() *options {
	return &options{
		clock: clockwork.NewRealClock(),
	}
}

// Option 调度器配置选项
type Option func(*options)

// WithLogger 设置日志记录器，同时作为所有任务的默认 logger。
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

// WithObserver 为所有任务设置 OpenTelemetry 观测器。
func WithObserver(obs *xtrigger.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithStats 使用外部统计实例，默认由调度器创建。
func WithStats(s *xtrigger.Stats) Option {
	return func(o *options) {
		if s != nil {
			o.stats = s
		}
	}
}

// WithRunIDs 为所有任务的每次执行分配 ID。
func WithRunIDs(ids *xtrigger.RunIDs) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithTaskOptions 追加所有任务共用的默认选项，单个任务的选项优先。
//
// 用法：
//
//	s := xschedule.New(reg, xschedule.WithTaskOptions(
//	    xtrigger.WithTimeout(30*time.Second),
//	    xtrigger.WithRetry(3, time.Second),
//	))
func WithTaskOptions(opts ...xtrigger.Option) Option {
	return func(o *options) {
		o.taskOpts = append(o.taskOpts, opts...)
	}
}
