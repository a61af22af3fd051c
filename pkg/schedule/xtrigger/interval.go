package xtrigger

import (
	"sync"
	"time"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

var _ Handle = (*Interval)(nil)

// Interval 固定周期任务。每个周期异步执行一次回调，不等待上一次结束。
type Interval struct {
	name   string
	period time.Duration
	opts   *options
	runner *runner

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	done     chan struct{}
	lastFire time.Time
}

// NewInterval 构建周期任务，返回的任务处于停止状态。period 必须为正。
func NewInterval(name string, period time.Duration, fn Func, opts ...Option) (*Interval, error) {
	if fn == nil {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindInterval, Name: name, Reason: "nil callback"}
	}
	if period <= 0 {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindInterval, Name: name, Reason: "period must be positive"}
	}
	o := buildOptions(opts)
	return &Interval{
		name:   name,
		period: period,
		opts:   o,
		runner: newRunner(xtask.KindInterval, name, fn, o),
	}, nil
}

// Name 实现 [Handle]。
func (i *Interval) Name() string { return i.name }

// Kind 实现 [Handle]。
func (i *Interval) Kind() xtask.Kind { return xtask.KindInterval }

// Period 返回周期。
func (i *Interval) Period() time.Duration { return i.period }

// Start 开始周期触发，重启后从当前时刻重新计时。
func (i *Interval) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return
	}
	i.running = true
	i.stop = make(chan struct{})
	i.done = make(chan struct{})
	go i.loop(i.stop, i.done)
}

// Stop 停止触发并等待循环退出，执行中的回调继续完成。
func (i *Interval) Stop() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	close(i.stop)
	done := i.done
	i.mu.Unlock()
	<-done
}

// IsRunning 实现 [Handle]。
func (i *Interval) IsRunning() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// LastFireTime 实现 [Handle]。
func (i *Interval) LastFireTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastFire
}

func (i *Interval) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := i.opts.clock.NewTicker(i.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case at := <-ticker.Chan():
			i.mu.Lock()
			select {
			case <-stop:
				i.mu.Unlock()
				return
			default:
			}
			i.lastFire = at
			i.mu.Unlock()
			i.runner.launch(at, nil)
		}
	}
}
