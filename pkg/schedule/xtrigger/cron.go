package xtrigger

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

var _ Handle = (*CronJob)(nil)

// CronJob cron 触发的任务。
//
// 触发时刻由 robfig/cron 计算，等待使用注入的时钟。
// 晚醒不会补触发：下一次触发总是从当前时刻重新计算。
type CronJob struct {
	name     string
	cronTime CronTime
	location *time.Location
	schedule cron.Schedule
	opts     *options
	runner   *runner

	mu        sync.Mutex
	running   bool
	exhausted bool
	stop      chan struct{}
	done      chan struct{}
	lastFire  time.Time
	runs      int
	active    int
}

// NewCron 构建 cron 任务，返回的任务处于停止状态。
//
// 表达式非法、时区未知或同时设置时区与 UTC 偏移时返回 [*xtask.ConfigurationError]。
func NewCron(name string, cronTime CronTime, fn Func, opts ...Option) (*CronJob, error) {
	if fn == nil {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindCron, Name: name, Reason: "nil callback"}
	}
	o := buildOptions(opts)
	loc, err := resolveLocation(o)
	if err != nil {
		return nil, locationError(name, err)
	}
	sched, err := buildSchedule(cronTime, loc, o.dayMode)
	if err != nil {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindCron, Name: name, Reason: "invalid cron time", Err: err}
	}
	return &CronJob{
		name:     name,
		cronTime: cronTime,
		location: loc,
		schedule: sched,
		opts:     o,
		runner:   newRunner(xtask.KindCron, name, fn, o),
	}, nil
}

// Name 实现 [Handle]。
func (j *CronJob) Name() string { return j.name }

// Kind 实现 [Handle]。
func (j *CronJob) Kind() xtask.Kind { return xtask.KindCron }

// CronTime 返回构建时的触发时间。
func (j *CronJob) CronTime() CronTime { return j.cronTime }

// Location 返回解释表达式所用的时区。
func (j *CronJob) Location() *time.Location { return j.location }

// Disabled 是否以 [WithDisabled] 构建。
func (j *CronJob) Disabled() bool { return j.opts.disabled }

// Start 启动触发循环。已运行或已耗尽（达到最大次数、绝对时刻已过）时为空操作。
func (j *CronJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running || j.exhausted {
		return
	}
	j.running = true
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	go j.loop(j.stop, j.done)
}

// Stop 停止触发并等待触发循环退出。执行中的回调继续完成。
//
// 可在回调内调用。
func (j *CronJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stop)
	done := j.done
	j.mu.Unlock()
	<-done
}

// IsRunning 实现 [Handle]。
func (j *CronJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// LastFireTime 返回最近一次触发的计划时刻。
func (j *CronJob) LastFireTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastFire
}

// Runs 返回累计触发次数（不含跳过）。
func (j *CronJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// NextFireTime 返回从当前时刻起的下一次触发时刻，不再触发时为零值。
func (j *CronJob) NextFireTime() time.Time {
	j.mu.Lock()
	exhausted := j.exhausted
	j.mu.Unlock()
	if exhausted {
		return time.Time{}
	}
	return j.schedule.Next(j.opts.clock.Now())
}

func (j *CronJob) loop(stop, done chan struct{}) {
	defer close(done)
	clock := j.opts.clock
	for {
		now := clock.Now()
		next := j.schedule.Next(now)
		if next.IsZero() {
			j.exhaust()
			return
		}
		timer := clock.NewTimer(next.Sub(now))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if !j.fire(stop, next) {
			return
		}
	}
}

// exhaust 调度不再产生触发时刻，进入终态。
func (j *CronJob) exhaust() {
	j.mu.Lock()
	j.exhausted = true
	j.running = false
	j.mu.Unlock()
}

// fire 处理一次到点，返回循环是否继续。
func (j *CronJob) fire(stop chan struct{}, at time.Time) bool {
	j.mu.Lock()
	select {
	case <-stop:
		j.mu.Unlock()
		return false
	default:
	}
	if j.opts.preventOverrun && j.active > 0 {
		j.mu.Unlock()
		j.runner.skipped(at, skipOverrun)
		return true
	}
	if j.opts.minInterval > 0 && !j.lastFire.IsZero() && at.Sub(j.lastFire) < j.opts.minInterval {
		j.mu.Unlock()
		j.runner.skipped(at, skipMinInterval)
		return true
	}
	j.lastFire = at
	j.runs++
	j.active++
	finished := j.opts.maxRuns > 0 && j.runs >= j.opts.maxRuns
	if finished {
		j.exhausted = true
		j.running = false
	}
	j.mu.Unlock()

	j.runner.launch(at, j.release)
	return !finished
}

func (j *CronJob) release() {
	j.mu.Lock()
	j.active--
	j.mu.Unlock()
}
