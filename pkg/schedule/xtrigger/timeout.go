package xtrigger

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

var _ Handle = (*Timeout)(nil)

// Timeout 一次性延迟任务。
//
// 触发后不会自动从注册表移除，IsRunning 变为 false、Fired 变为 true。
type Timeout struct {
	name   string
	delay  time.Duration
	opts   *options
	runner *runner

	mu       sync.Mutex
	running  bool
	fired    bool
	timer    clockwork.Timer
	gen      uint64
	lastFire time.Time
}

// NewTimeout 构建延迟任务，返回的任务处于停止状态。delay 不能为负。
func NewTimeout(name string, delay time.Duration, fn Func, opts ...Option) (*Timeout, error) {
	if fn == nil {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindTimeout, Name: name, Reason: "nil callback"}
	}
	if delay < 0 {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindTimeout, Name: name, Reason: "delay must not be negative"}
	}
	o := buildOptions(opts)
	return &Timeout{
		name:   name,
		delay:  delay,
		opts:   o,
		runner: newRunner(xtask.KindTimeout, name, fn, o),
	}, nil
}

// Name 实现 [Handle]。
func (t *Timeout) Name() string { return t.name }

// Kind 实现 [Handle]。
func (t *Timeout) Kind() xtask.Kind { return xtask.KindTimeout }

// Delay 返回延迟。
func (t *Timeout) Delay() time.Duration { return t.delay }

// Start 从当前时刻开始计时。已触发或计时中时为空操作。
func (t *Timeout) Start() {
	t.mu.Lock()
	if t.running || t.fired {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	// delay 为 0 时计时器可能立即触发，AfterFunc 不能在持锁时调用
	timer := t.opts.clock.AfterFunc(t.delay, func() { t.fire(gen) })

	t.mu.Lock()
	if t.running && gen == t.gen {
		t.timer = timer
	} else {
		timer.Stop()
	}
	t.mu.Unlock()
}

// Stop 取消计时。已触发的回调继续完成。
func (t *Timeout) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.running = false
}

// IsRunning 是否计时中。
func (t *Timeout) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Fired 是否已触发。
func (t *Timeout) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// LastFireTime 实现 [Handle]。
func (t *Timeout) LastFireTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFire
}

// fire 只处理当前一轮计时，Stop 后重启遗留的旧计时器被忽略。
func (t *Timeout) fire(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.fired = true
	t.timer = nil
	at := t.opts.clock.Now()
	t.lastFire = at
	t.mu.Unlock()

	t.runner.launch(at, nil)
}
