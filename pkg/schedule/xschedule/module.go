package xschedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// ErrNotInitialized 模块未初始化。
var ErrNotInitialized = errors.New("xschedule: module not initialized")

type moduleOptions struct {
	registry    *xtask.Registry
	logger      xlog.Logger
	discoverers []Discoverer
	providers   []CronProvider
	resolver    HandlerResolver
	schedOpts   []Option
}

// ModuleOption 模块配置选项
type ModuleOption func(*moduleOptions)

// WithRegistry 使用外部注册表，默认新建。
func WithRegistry(r *xtask.Registry) ModuleOption {
	return func(o *moduleOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithModuleLogger 设置模块与调度器的日志记录器。
func WithModuleLogger(l xlog.Logger) ModuleOption {
	return func(o *moduleOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiscoverers 追加声明来源。
func WithDiscoverers(ds ...Discoverer) ModuleOption {
	return func(o *moduleOptions) {
		o.discoverers = append(o.discoverers, ds...)
	}
}

// WithCronProviders 追加预构建 cron 任务来源。
func WithCronProviders(ps ...CronProvider) ModuleOption {
	return func(o *moduleOptions) {
		o.providers = append(o.providers, ps...)
	}
}

// WithHandlerResolver 设置配置文件任务的回调解析器。
func WithHandlerResolver(r HandlerResolver) ModuleOption {
	return func(o *moduleOptions) {
		o.resolver = r
	}
}

// WithSchedulerOptions 透传调度器选项。
func WithSchedulerOptions(opts ...Option) ModuleOption {
	return func(o *moduleOptions) {
		o.schedOpts = append(o.schedOpts, opts...)
	}
}

// Module 把配置、声明来源与调度器组装为一个生命周期单元。
//
//	m, err := xschedule.NewModule(cfg,
//	    xschedule.WithDiscoverers(decls),
//	    xschedule.WithHandlerResolver(handlers),
//	)
//	if err != nil {
//	    return err
//	}
//	return m.Run(ctx)
type Module struct {
	opts      *moduleOptions
	scheduler *Scheduler
	logger    xlog.Logger

	mu          sync.Mutex
	cfg         Config
	initialized bool
	// configJobs 配置文件中已注册的任务，用于 Reload 对账
	configJobs map[string]JobConfig
}

// NewModule 校验配置并创建模块。
func NewModule(cfg Config, opts ...ModuleOption) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &moduleOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	logger := xlog.OrDefault(o.logger)
	schedOpts := append([]Option{WithLogger(logger)}, o.schedOpts...)
	return &Module{
		opts:       o,
		scheduler:  New(o.registry, schedOpts...),
		logger:     logger,
		cfg:        cfg,
		configJobs: make(map[string]JobConfig),
	}, nil
}

// Scheduler 返回模块的调度器。
func (m *Module) Scheduler() *Scheduler { return m.scheduler }

// Config 返回当前配置。
func (m *Module) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Init 探索所有声明来源（含配置文件中的任务）并登记到调度器。重复调用为空操作。
func (m *Module) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	discoverers := m.opts.discoverers
	jobs := m.enabledJobs(m.cfg)
	if len(jobs) > 0 {
		discoverers = append(discoverers[:len(discoverers):len(discoverers)],
			NewConfigDiscoverer(jobs, m.opts.resolver))
	}
	n, err := Explore(ctx, m.scheduler, m.cfg, discoverers...)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		m.configJobs[job.key()] = job
	}
	m.initialized = true
	m.logger.Info(ctx, "schedule module initialized", xlog.Count(n))
	return nil
}

// enabledJobs 过滤被类型开关关闭的配置任务。
func (m *Module) enabledJobs(cfg Config) []JobConfig {
	out := make([]JobConfig, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		kind, err := xtask.ParseKind(job.Kind)
		if err == nil && !cfg.Enabled(kind) {
			continue
		}
		out = append(out, job)
	}
	return out
}

// Bootstrap 引导调度器并合并 cron provider 的任务。
func (m *Module) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	initialized := m.initialized
	cronEnabled := m.cfg.CronJobs
	m.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}
	if err := m.scheduler.Bootstrap(ctx); err != nil {
		return err
	}
	if !cronEnabled || len(m.opts.providers) == 0 {
		return nil
	}
	_, err := m.scheduler.UseCron(ctx, m.opts.providers...)
	return err
}

// Shutdown 关闭调度器，配置了 ShutdownTimeout 时最多等待该时长。
func (m *Module) Shutdown(ctx context.Context) error {
	if timeout := m.Config().ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return m.scheduler.Shutdown(ctx)
}

// Run 初始化、引导并阻塞到 ctx 结束，随后关闭。
//
// 关闭使用脱离 ctx 取消信号的 context，仍受 ShutdownTimeout 约束。
func (m *Module) Run(ctx context.Context) error {
	if err := m.Init(ctx); err != nil {
		return err
	}
	if err := m.Bootstrap(ctx); err != nil {
		return errors.Join(err, m.Shutdown(context.WithoutCancel(ctx)))
	}
	<-ctx.Done()
	return m.Shutdown(context.WithoutCancel(ctx))
}

// Reload 按新配置对账配置文件中的任务：新增的注册，变化的替换，删除的移除。
//
// 类型开关与 ShutdownTimeout 同样更新，开关只影响配置任务。
// 声明来源与 provider 的任务不受影响。
func (m *Module) Reload(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}

	next := make(map[string]JobConfig, len(cfg.Jobs))
	for _, job := range m.enabledJobs(cfg) {
		next[job.key()] = job
	}

	var removed, added, replaced int
	stale := make(map[string]bool)
	for key, old := range m.configJobs {
		if job, ok := next[key]; ok && reflect.DeepEqual(job, old) {
			continue
		}
		kind, _ := xtask.ParseKind(old.Kind)
		m.scheduler.Remove(kind, old.Name)
		delete(m.configJobs, key)
		if _, ok := next[key]; ok {
			stale[key] = true
		} else {
			removed++
		}
	}

	var errs []error
	for key, job := range next {
		if _, ok := m.configJobs[key]; ok {
			continue
		}
		c, err := jobCandidate(job, m.opts.resolver)
		if err == nil {
			err = m.scheduler.Register(c)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("xschedule: reload %s: %w", key, err))
			continue
		}
		m.configJobs[key] = job
		if stale[key] {
			replaced++
		} else {
			added++
		}
	}
	m.cfg = cfg

	m.logger.Info(ctx, "schedule config reloaded",
		slog.Int("added", added), slog.Int("replaced", replaced), slog.Int("removed", removed))
	return errors.Join(errs...)
}
