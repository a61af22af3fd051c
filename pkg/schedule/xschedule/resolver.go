package xschedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// ErrHandlerNotFound 配置任务引用了未注册的回调。
var ErrHandlerNotFound = errors.New("xschedule: handler not found")

// configOwner 配置文件声明的任务在日志中的所属名。
const configOwner = "config"

// HandlerResolver 为配置文件中的任务解析回调。
type HandlerResolver interface {
	Resolve(job JobConfig) (xtrigger.Func, error)
}

// HandlerResolverFunc 以函数形式实现 [HandlerResolver]。
type HandlerResolverFunc func(job JobConfig) (xtrigger.Func, error)

// Resolve 实现 [HandlerResolver]。
func (f HandlerResolverFunc) Resolve(job JobConfig) (xtrigger.Func, error) {
	return f(job)
}

// Handlers 按名称查找回调，键为 JobConfig.Handler，为空时用 JobConfig.Name。
type Handlers map[string]xtrigger.Func

// Resolve 实现 [HandlerResolver]。
func (h Handlers) Resolve(job JobConfig) (xtrigger.Func, error) {
	name := job.HandlerName()
	fn, ok := h[name]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	return fn, nil
}

// ConfigDiscoverer 把配置文件中的任务转换为声明。
type ConfigDiscoverer struct {
	jobs     []JobConfig
	resolver HandlerResolver
}

// NewConfigDiscoverer 创建配置声明来源。
func NewConfigDiscoverer(jobs []JobConfig, resolver HandlerResolver) *ConfigDiscoverer {
	return &ConfigDiscoverer{jobs: jobs, resolver: resolver}
}

// Discover 实现 [Discoverer]。
func (d *ConfigDiscoverer) Discover(context.Context) ([]Candidate, error) {
	out := make([]Candidate, 0, len(d.jobs))
	for _, job := range d.jobs {
		c, err := jobCandidate(job, d.resolver)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// jobCandidate 校验任务并解析回调。
func jobCandidate(job JobConfig, resolver HandlerResolver) (Candidate, error) {
	if err := job.Validate(); err != nil {
		return Candidate{}, err
	}
	kind, _ := xtask.ParseKind(job.Kind)
	if resolver == nil {
		return Candidate{}, fmt.Errorf("%w: %q: no resolver", ErrHandlerNotFound, job.HandlerName())
	}
	fn, err := resolver.Resolve(job)
	if err != nil {
		return Candidate{}, err
	}
	opts, err := job.Options()
	if err != nil {
		return Candidate{}, err
	}
	c := Candidate{
		Owner:    configOwner,
		Method:   job.HandlerName(),
		Kind:     kind,
		Name:     job.Name,
		Callback: fn,
		Every:    job.Every,
		Options:  opts,
		Static:   true,
	}
	if kind == xtask.KindCron {
		if c.CronTime, err = job.CronTime(); err != nil {
			return Candidate{}, err
		}
	}
	return c, nil
}
