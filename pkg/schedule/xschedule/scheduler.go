package xschedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// ErrClosed 调度器已关闭。
var ErrClosed = errors.New("xschedule: scheduler is shut down")

// Scheduler 任务编排器。
//
// 引导前添加的任务只构建句柄并缓冲，[Scheduler.Bootstrap] 时按
// timeout、interval、cron 的顺序插入注册表并启动；引导后添加的任务立即插入并启动。
// [Scheduler.Shutdown] 停止并摘除注册表中全部任务，等待执行中的回调结束。
//
// 所有方法并发安全。
type Scheduler struct {
	registry *xtask.Registry
	opts     *options
	tracker  *xtrigger.Tracker
	logger   xlog.Logger

	mu           sync.Mutex
	pending      []pendingTask
	bootstrapped bool
	closed       bool
}

// pendingTask 引导前缓冲的任务，name 为注册名。
type pendingTask struct {
	name   string
	handle xtrigger.Handle
}

// New 创建调度器。registry 为 nil 时创建新的注册表。
func New(registry *xtask.Registry, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.stats == nil {
		o.stats = xtrigger.NewStats()
	}
	if registry == nil {
		registry = xtask.NewRegistry()
	}
	return &Scheduler{
		registry: registry,
		opts:     o,
		tracker:  xtrigger.NewTracker(),
		logger:   o.logger.With(xlog.Component("xschedule")),
	}
}

// Registry 返回底层注册表。
func (s *Scheduler) Registry() *xtask.Registry { return s.registry }

// Stats 返回所有任务共享的执行统计。
func (s *Scheduler) Stats() *xtrigger.Stats { return s.opts.stats }

// Tracker 返回所有任务共享的执行中计数。
func (s *Scheduler) Tracker() *xtrigger.Tracker { return s.tracker }

// Bootstrapped 是否已完成引导。
func (s *Scheduler) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapped
}

// Closed 是否已关闭。
func (s *Scheduler) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pending 返回等待引导的任务数。
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// taskOptions 组合调度器共享选项、默认任务选项与单任务选项。
func (s *Scheduler) taskOptions(opts []xtrigger.Option) []xtrigger.Option {
	o := s.opts
	all := make([]xtrigger.Option, 0, 6+len(o.taskOpts)+len(opts))
	all = append(all,
		xtrigger.WithLogger(o.logger),
		xtrigger.WithClock(o.clock),
		xtrigger.WithTracker(s.tracker),
		xtrigger.WithStats(o.stats),
		xtrigger.WithObserver(o.observer),
		xtrigger.WithRunIDs(o.ids),
	)
	all = append(all, o.taskOpts...)
	return append(all, opts...)
}

func taskName(name string) string {
	if name == "" {
		return uuid.NewString()
	}
	return name
}

// AddCron 添加 cron 任务，name 为空时生成 UUID。
//
// 引导后调用时任务立即插入并启动（[xtrigger.WithDisabled] 除外），
// 重名返回 [*xtask.DuplicateTaskError]。
func (s *Scheduler) AddCron(name string, cronTime xtrigger.CronTime, fn xtrigger.Func, opts ...xtrigger.Option) (*xtrigger.CronJob, error) {
	job, err := xtrigger.NewCron(taskName(name), cronTime, fn, s.taskOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if err := s.admit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// AddInterval 添加周期任务，name 为空时生成 UUID。
func (s *Scheduler) AddInterval(name string, period time.Duration, fn xtrigger.Func, opts ...xtrigger.Option) (*xtrigger.Interval, error) {
	iv, err := xtrigger.NewInterval(taskName(name), period, fn, s.taskOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if err := s.admit(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// AddTimeout 添加延迟任务，name 为空时生成 UUID。
func (s *Scheduler) AddTimeout(name string, delay time.Duration, fn xtrigger.Func, opts ...xtrigger.Option) (*xtrigger.Timeout, error) {
	to, err := xtrigger.NewTimeout(taskName(name), delay, fn, s.taskOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if err := s.admit(to); err != nil {
		return nil, err
	}
	return to, nil
}

// admit 引导前缓冲，引导后立即插入并启动。
//
// 插入在锁内完成，保证与 Shutdown 串行：关闭后不会再有任务进入注册表。
func (s *Scheduler) admit(h xtrigger.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.bootstrapped {
		s.pending = append(s.pending, pendingTask{name: h.Name(), handle: h})
		return nil
	}
	if err := s.registry.Add(h.Kind(), h.Name(), h); err != nil {
		h.Stop()
		return err
	}
	s.start(h)
	s.logger.Debug(context.Background(), "task added", xlog.Task(string(h.Kind()), h.Name())...)
	return nil
}

// start 启动句柄，禁用的 cron 任务只插入不启动。
func (s *Scheduler) start(h xtrigger.Handle) {
	if job, ok := h.(*xtrigger.CronJob); ok && job.Disabled() {
		return
	}
	h.Start()
}

// Bootstrap 引导：按 timeout、interval、cron 的顺序插入并启动缓冲的任务。
//
// 重名是致命错误：已插入的任务全部停止并摘除，返回 [*xtask.DuplicateTaskError]，
// 调度器保持未引导状态且缓冲清空。重复调用为空操作。
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.bootstrapped {
		return nil
	}
	pending := s.pending
	s.pending = nil

	added := make([]pendingTask, 0, len(pending))
	fail := func(err error) error {
		for _, p := range added {
			s.registry.Remove(p.handle.Kind(), p.name)
		}
		return err
	}

	for _, kind := range xtask.Kinds() {
		for _, p := range pending {
			if p.handle.Kind() != kind {
				continue
			}
			if err := ctx.Err(); err != nil {
				return fail(fmt.Errorf("xschedule: bootstrap: %w", err))
			}
			if err := s.registry.Add(kind, p.name, p.handle); err != nil {
				s.logger.Error(ctx, "bootstrap failed", append(xlog.Task(string(kind), p.name), xlog.Err(err))...)
				return fail(err)
			}
			added = append(added, p)
		}
	}

	for _, p := range added {
		s.start(p.handle)
	}
	s.bootstrapped = true
	s.logger.Info(ctx, "scheduler bootstrapped",
		slog.Int("timeouts", s.registry.Len(xtask.KindTimeout)),
		slog.Int("intervals", s.registry.Len(xtask.KindInterval)),
		slog.Int("cron_jobs", s.registry.Len(xtask.KindCron)))
	return nil
}

// Shutdown 停止并摘除注册表中全部任务（包括直接插入注册表的任务），
// 丢弃缓冲的任务，再等待执行中的回调结束。
//
// ctx 结束时不再等待，返回 ctx.Err() 的包装。可重复调用。
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	var stopped int
	for _, kind := range xtask.Kinds() {
		stopped += len(s.registry.RemoveAll(kind))
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "scheduler shut down", xlog.Count(stopped), slog.Int("in_flight", s.tracker.Active()))

	if err := s.tracker.Wait(ctx); err != nil {
		return fmt.Errorf("xschedule: wait for running tasks: %w", err)
	}
	return nil
}

// Get 按类型与名称查询任务，不存在时返回 [*xtask.TaskNotFoundError]。
func (s *Scheduler) Get(kind xtask.Kind, name string) (xtrigger.Handle, error) {
	return xtask.Lookup[xtrigger.Handle](s.registry, kind, name)
}

// Exists 判断任务是否存在。
func (s *Scheduler) Exists(kind xtask.Kind, name string) bool {
	return s.registry.Exists(kind, name)
}

// List 按插入顺序返回任务名。
func (s *Scheduler) List(kind xtask.Kind) []string {
	return s.registry.List(kind)
}

// Remove 停止并摘除任务，名称不存在时为空操作。
func (s *Scheduler) Remove(kind xtask.Kind, name string) bool {
	removed := s.registry.Remove(kind, name)
	if removed {
		s.logger.Debug(context.Background(), "task removed", xlog.Task(string(kind), name)...)
	}
	return removed
}

// CronJob 查询 cron 任务。
func (s *Scheduler) CronJob(name string) (*xtrigger.CronJob, error) {
	return xtask.Lookup[*xtrigger.CronJob](s.registry, xtask.KindCron, name)
}

// Interval 查询周期任务。
func (s *Scheduler) Interval(name string) (*xtrigger.Interval, error) {
	return xtask.Lookup[*xtrigger.Interval](s.registry, xtask.KindInterval, name)
}

// Timeout 查询延迟任务。
func (s *Scheduler) Timeout(name string) (*xtrigger.Timeout, error) {
	return xtask.Lookup[*xtrigger.Timeout](s.registry, xtask.KindTimeout, name)
}
