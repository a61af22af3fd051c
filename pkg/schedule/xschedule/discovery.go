package xschedule

//go:generate mockgen -source=discovery.go -destination=mock_discoverer_test.go -package=xschedule

import (
	"context"
	"slices"
	"time"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// Candidate 待注册的任务声明。
//
// Owner 与 Method 标识声明来源，只用于日志。Every 对 interval 是周期，
// 对 timeout 是延迟；CronTime 只对 cron 生效。
type Candidate struct {
	Owner    string
	Method   string
	Kind     xtask.Kind
	Name     string
	Callback xtrigger.Func
	CronTime xtrigger.CronTime
	Every    time.Duration
	Options  []xtrigger.Option
	// Static 所属对象是否与进程同生命周期。
	// 按请求创建的对象为 false，探索时只告警不注册。
	Static bool
}

// Discoverer 任务声明来源。
type Discoverer interface {
	// Discover 返回声明列表，错误会中止模块初始化。
	Discover(ctx context.Context) ([]Candidate, error)
}

// DiscovererFunc 以函数形式实现 [Discoverer]。
type DiscovererFunc func(ctx context.Context) ([]Candidate, error)

// Discover 实现 [Discoverer]。
func (f DiscovererFunc) Discover(ctx context.Context) ([]Candidate, error) {
	return f(ctx)
}

// Candidates 固定的声明列表。
type Candidates []Candidate

// Discover 实现 [Discoverer]。
func (c Candidates) Discover(context.Context) ([]Candidate, error) {
	return slices.Clone(c), nil
}

// Declarations 按所属对象显式声明任务。
//
//	d := xschedule.Declare("ReportService").
//	    Cron("Nightly", "nightly-report", xtrigger.Pattern("0 0 2 * * *"), svc.Nightly).
//	    Interval("Flush", "", time.Minute, svc.Flush)
type Declarations struct {
	owner  string
	scoped bool
	items  []Candidate
}

// Declare 开始为 owner 声明任务，默认 owner 与进程同生命周期。
func Declare(owner string) *Declarations {
	return &Declarations{owner: owner}
}

// Scoped 标记 owner 按请求创建，其声明的任务不会被注册。
func (d *Declarations) Scoped() *Declarations {
	d.scoped = true
	return d
}

// Cron 声明 cron 任务，name 为空时注册时生成。
func (d *Declarations) Cron(method, name string, cronTime xtrigger.CronTime, fn xtrigger.Func, opts ...xtrigger.Option) *Declarations {
	d.items = append(d.items, Candidate{
		Method: method, Kind: xtask.KindCron, Name: name,
		Callback: fn, CronTime: cronTime, Options: opts,
	})
	return d
}

// Interval 声明周期任务。
func (d *Declarations) Interval(method, name string, period time.Duration, fn xtrigger.Func, opts ...xtrigger.Option) *Declarations {
	d.items = append(d.items, Candidate{
		Method: method, Kind: xtask.KindInterval, Name: name,
		Callback: fn, Every: period, Options: opts,
	})
	return d
}

// Timeout 声明延迟任务。
func (d *Declarations) Timeout(method, name string, delay time.Duration, fn xtrigger.Func, opts ...xtrigger.Option) *Declarations {
	d.items = append(d.items, Candidate{
		Method: method, Kind: xtask.KindTimeout, Name: name,
		Callback: fn, Every: delay, Options: opts,
	})
	return d
}

// Candidates 返回声明列表。
func (d *Declarations) Candidates() Candidates {
	out := make(Candidates, len(d.items))
	for i, c := range d.items {
		c.Owner = d.owner
		c.Static = !d.scoped
		out[i] = c
	}
	return out
}

// Discover 实现 [Discoverer]。
func (d *Declarations) Discover(ctx context.Context) ([]Candidate, error) {
	return d.Candidates().Discover(ctx)
}
