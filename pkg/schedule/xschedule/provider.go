package xschedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// ProvidedCronJob 预先构建的 cron 任务。
type ProvidedCronJob struct {
	Name string
	Job  *xtrigger.CronJob
}

// CronProvider 提供预先构建的 cron 任务。
//
// opts 是调度器的共享任务选项（时钟、日志、Tracker、统计等），
// 构建任务时应放在自身选项之前传给 [xtrigger.NewCron]，
// 否则关闭时不会等待该任务执行中的回调。
type CronProvider interface {
	CronJobs(ctx context.Context, opts []xtrigger.Option) ([]ProvidedCronJob, error)
}

// CronProviderFunc 以函数形式实现 [CronProvider]。
type CronProviderFunc func(ctx context.Context, opts []xtrigger.Option) ([]ProvidedCronJob, error)

// CronJobs 实现 [CronProvider]。
func (f CronProviderFunc) CronJobs(ctx context.Context, opts []xtrigger.Option) ([]ProvidedCronJob, error) {
	return f(ctx, opts)
}

// UseCron 把各 provider 的任务并入调度器，返回并入数量。
//
// Name 为空时使用任务自身的名称。引导前并入的任务随 Bootstrap 插入；
// 引导后立即插入并启动（禁用的除外），任一插入失败时本次已插入的任务被摘除。
// 调度器关闭后返回 [ErrClosed]。
func (s *Scheduler) UseCron(ctx context.Context, providers ...CronProvider) (int, error) {
	if s.Closed() {
		return 0, ErrClosed
	}

	// provider 在锁外调用，允许其回访调度器
	shared := s.taskOptions(nil)
	var jobs []ProvidedCronJob
	for _, p := range providers {
		if p == nil {
			continue
		}
		provided, err := p.CronJobs(ctx, shared)
		if err != nil {
			return 0, fmt.Errorf("xschedule: cron provider: %w", err)
		}
		for _, pj := range provided {
			if pj.Job == nil {
				continue
			}
			if pj.Name == "" {
				pj.Name = pj.Job.Name()
			}
			jobs = append(jobs, pj)
		}
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	names, err := s.adoptCron(jobs)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "registered cron jobs", xlog.Count(len(names)), slog.Any("names", names))
	return len(names), nil
}

// adoptCron 在锁内并入任务，与 Shutdown 串行。
func (s *Scheduler) adoptCron(jobs []ProvidedCronJob) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	names := make([]string, 0, len(jobs))
	if !s.bootstrapped {
		for _, pj := range jobs {
			s.pending = append(s.pending, pendingTask{name: pj.Name, handle: pj.Job})
			names = append(names, pj.Name)
		}
		return names, nil
	}

	for _, pj := range jobs {
		if err := s.registry.Add(xtask.KindCron, pj.Name, pj.Job); err != nil {
			for _, name := range names {
				s.registry.Remove(xtask.KindCron, name)
			}
			return nil, err
		}
		names = append(names, pj.Name)
	}
	for _, pj := range jobs {
		s.start(pj.Job)
	}
	return names, nil
}
