package xtrigger

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// 跳过原因，用于日志与指标。
const (
	skipOverrun     = "overrun"
	skipMinInterval = "min_interval"
	skipBreakerOpen = "breaker_open"
)

// runner 单个任务的执行管道：
// run id → span → BeforeRun → 超时 → 熔断 → 重试 → 回调（panic 恢复）
// → AfterRun（逆序）→ 统计 → 日志。
//
// 回调失败只记录，不返回给调度循环。
type runner struct {
	kind xtask.Kind
	name string
	fn   Func
	opts *options
	cb   *gobreaker.CircuitBreaker[any]
}

func newRunner(kind xtask.Kind, name string, fn Func, opts *options) *runner {
	r := &runner{kind: kind, name: name, fn: fn, opts: opts}
	if opts.breakerFailures > 0 {
		threshold := opts.breakerFailures
		r.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        statsKey(kind, name),
			MaxRequests: 1,
			Timeout:     opts.breakerCooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				opts.logger.Warn(context.Background(), "task breaker state changed",
					append(xlog.Task(string(kind), name),
						slog.String("from", from.String()),
						slog.String("to", to.String()))...)
			},
		})
	}
	return r
}

// launch 异步执行一次，done 在回调结束后、Tracker 计数归还前调用。
func (r *runner) launch(scheduledAt time.Time, done func()) {
	tracker := r.opts.tracker
	tracker.add()
	go func() {
		defer tracker.done()
		if done != nil {
			defer done()
		}
		r.run(scheduledAt)
	}()
}

// skipped 记录一次未执行的触发。
func (r *runner) skipped(scheduledAt time.Time, reason string) {
	r.opts.stats.recordSkip(r.kind, r.name)
	ctx := r.opts.baseCtx
	r.opts.observer.skip(ctx, RunInfo{Kind: r.kind, Name: r.name, ScheduledAt: scheduledAt}, reason)
	r.opts.logger.Debug(ctx, "task fire skipped",
		append(xlog.Task(string(r.kind), r.name), slog.String("reason", reason))...)
}

func (r *runner) run(scheduledAt time.Time) {
	info := RunInfo{Kind: r.kind, Name: r.name, ScheduledAt: scheduledAt}
	ctx := r.opts.baseCtx
	attrs := xlog.Task(string(r.kind), r.name)
	if r.opts.ids != nil {
		if id, err := r.opts.ids.Next(); err == nil {
			info.RunID = id
			attrs = append(attrs, xlog.RunID(id))
		}
	}
	ctx = xlog.WithContextAttrs(ctx, attrs...)

	ctx, span := r.opts.observer.start(ctx, info)
	for _, h := range r.opts.hooks {
		ctx = h.BeforeRun(ctx, info)
	}
	if r.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.timeout)
		defer cancel()
	}

	clock := r.opts.clock
	start := clock.Now()
	err := r.execute(ctx)
	duration := clock.Since(start)

	for i := len(r.opts.hooks) - 1; i >= 0; i-- {
		r.opts.hooks[i].AfterRun(ctx, info, duration, err)
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.opts.stats.recordSkip(r.kind, r.name)
		r.opts.observer.skip(ctx, info, skipBreakerOpen)
		r.opts.observer.abort(span, skipBreakerOpen)
		r.opts.logger.Warn(ctx, "task run skipped", slog.String("reason", skipBreakerOpen))
		return
	}

	r.opts.stats.recordRun(r.kind, r.name, start, duration, err)
	r.opts.observer.finish(ctx, span, info, duration, err)
	r.logResult(ctx, duration, err)
}

// execute 依次套上熔断与重试执行回调。
func (r *runner) execute(ctx context.Context) error {
	call := func() error { return r.invoke(ctx) }

	if r.opts.retryAttempts > 1 {
		once := call
		delay := r.opts.retryDelay
		call = func() error {
			return retry.New(
				retry.Context(ctx),
				retry.Attempts(r.opts.retryAttempts),
				retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration { return delay }),
				retry.LastErrorOnly(true),
				retry.OnRetry(func(n uint, err error) {
					r.opts.logger.Warn(ctx, "task run failed, will retry",
						slog.Uint64("attempt", uint64(n)+1), xlog.Err(err))
				}),
			).Do(once)
		}
	}

	if r.cb == nil {
		return call()
	}
	_, err := r.cb.Execute(func() (any, error) {
		return nil, call()
	})
	return err
}

// invoke 调用回调，把错误与 panic 统一包装为 CallbackExecutionError。
func (r *runner) invoke(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &xtask.CallbackExecutionError{
				Kind:  r.kind,
				Name:  r.name,
				Panic: p,
				Stack: debug.Stack(),
			}
		}
	}()
	if cbErr := r.fn(ctx); cbErr != nil {
		return &xtask.CallbackExecutionError{Kind: r.kind, Name: r.name, Err: cbErr}
	}
	return nil
}

func (r *runner) logResult(ctx context.Context, duration time.Duration, err error) {
	if err == nil {
		r.opts.logger.Debug(ctx, "task run completed", xlog.Duration(duration))
		return
	}
	attrs := []slog.Attr{xlog.Err(err), xlog.Duration(duration)}
	var cbErr *xtask.CallbackExecutionError
	if errors.As(err, &cbErr) && cbErr.Panic != nil {
		attrs = append(attrs, slog.String(xlog.KeyStack, string(cbErr.Stack)))
	}
	r.opts.logger.Error(ctx, "task run failed", attrs...)
}
