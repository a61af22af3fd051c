package xschedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// Explore 从各来源收集声明并注册到调度器，返回注册数量。
//
// 对每个声明：所属类型在 cfg 中被禁用时静默跳过；Static 为 false 时记录
// 告警并跳过；其余交给调度器注册。来源返回的错误与非法声明中止探索。
func Explore(ctx context.Context, s *Scheduler, cfg Config, discoverers ...Discoverer) (int, error) {
	var registered int
	for _, d := range discoverers {
		if d == nil {
			continue
		}
		candidates, err := d.Discover(ctx)
		if err != nil {
			return registered, fmt.Errorf("xschedule: discover: %w", err)
		}
		for _, c := range candidates {
			if !cfg.Enabled(c.Kind) {
				continue
			}
			if !c.Static {
				s.logger.Warn(ctx, nonStaticMessage(c),
					slog.String("owner", c.Owner), slog.String("method", c.Method))
				continue
			}
			if err := s.Register(c); err != nil {
				return registered, fmt.Errorf("xschedule: register %s@%s: %w", c.Owner, c.Method, err)
			}
			registered++
		}
	}
	s.logger.Debug(ctx, "tasks discovered", xlog.Count(registered))
	return registered, nil
}

func nonStaticMessage(c Candidate) string {
	kind := c.Kind.String()
	if c.Kind.IsValid() {
		kind = strings.ToLower(c.Kind.DisplayName())
	}
	return fmt.Sprintf("cannot register %s %q because it is defined in a non static provider",
		kind, c.Owner+"@"+c.Method)
}

// Register 按声明类型添加任务。
func (s *Scheduler) Register(c Candidate) error {
	var err error
	switch c.Kind {
	case xtask.KindCron:
		_, err = s.AddCron(c.Name, c.CronTime, c.Callback, c.Options...)
	case xtask.KindInterval:
		_, err = s.AddInterval(c.Name, c.Every, c.Callback, c.Options...)
	case xtask.KindTimeout:
		_, err = s.AddTimeout(c.Name, c.Every, c.Callback, c.Options...)
	default:
		err = &xtask.ConfigurationError{Kind: c.Kind, Name: c.Name, Reason: "unknown kind", Err: xtask.ErrUnknownKind}
	}
	return err
}
