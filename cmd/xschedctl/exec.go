package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"unicode/utf8"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xschedule"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// maxOutputLog 日志中保留的命令输出上限（字节）。
const maxOutputLog = 4 << 10

var _ xschedule.HandlerResolver = (*commandResolver)(nil)

// commandResolver 把配置任务的 command 字段解析为执行外部命令的回调。
type commandResolver struct {
	logger xlog.Logger
}

func newCommandResolver(logger xlog.Logger) *commandResolver {
	return &commandResolver{logger: xlog.OrDefault(logger)}
}

// Resolve 实现 [xschedule.HandlerResolver]。
func (r *commandResolver) Resolve(job xschedule.JobConfig) (xtrigger.Func, error) {
	if len(job.Command) == 0 || job.Command[0] == "" {
		return nil, fmt.Errorf("%w: job %q has no command", xschedule.ErrHandlerNotFound, job.Name)
	}
	argv := append([]string(nil), job.Command...)
	name := job.Name
	return func(ctx context.Context) error {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("xschedctl: command %q: %w (output: %s)", argv[0], err, truncate(out))
		}
		r.logger.Debug(ctx, "command finished", slog.String("job", name), slog.String("output", truncate(out)))
		return nil
	}, nil
}

// truncate 按字节上限截断输出，截断点退到 UTF-8 字符边界。
func truncate(out []byte) string {
	if len(out) <= maxOutputLog {
		return string(out)
	}
	cut := maxOutputLog
	for cut > 0 && !utf8.RuneStart(out[cut]) {
		cut--
	}
	return string(out[:cut]) + "...(truncated)"
}
