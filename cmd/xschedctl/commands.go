package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xschedule/pkg/schedule/xschedule"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// defaultNextCount next 命令默认预览的触发次数。
const defaultNextCount = 5

// maxNextCount next 命令单次预览上限。
const maxNextCount = 1000

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func newConfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "配置文件路径（.yaml/.yml/.json）",
		Required: true,
	}
}

func createNextCommand(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "预览 cron 表达式接下来的触发时刻",
		ArgsUsage: "<pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tz", Usage: "IANA 时区名"},
			&cli.IntFlag{Name: "utc-offset", Usage: "相对 UTC 的偏移（分钟），与 --tz 互斥"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "预览次数", Value: defaultNextCount},
			&cli.BoolFlag{Name: "and", Usage: "日与星期字段按 AND 组合"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("next 命令需要一个 cron 表达式参数")
			}
			req := nextRequest{
				pattern: cmd.Args().First(),
				tz:      cmd.String("tz"),
				count:   cmd.Int("count"),
				and:     cmd.Bool("and"),
				from:    time.Now(),
			}
			if cmd.IsSet("utc-offset") {
				offset := cmd.Int("utc-offset")
				req.utcOffset = &offset
			}
			return cmdNext(w, req)
		},
	}
}

type nextRequest struct {
	pattern   string
	tz        string
	utcOffset *int
	count     int
	and       bool
	from      time.Time
}

func (r nextRequest) options() []xtrigger.Option {
	var opts []xtrigger.Option
	if r.tz != "" {
		opts = append(opts, xtrigger.WithTimezone(r.tz))
	}
	if r.utcOffset != nil {
		opts = append(opts, xtrigger.WithUTCOffset(*r.utcOffset))
	}
	if r.and {
		opts = append(opts, xtrigger.WithDayMode(xtrigger.DayModeAND))
	}
	return opts
}

// cmdNext 每行输出一个 RFC3339 触发时刻，表达式不再触发时提前结束。
func cmdNext(w io.Writer, req nextRequest) error {
	if req.count <= 0 || req.count > maxNextCount {
		return usagef("--count 必须在 1 到 %d 之间", maxNextCount)
	}
	times, err := xtrigger.NextTimes(xtrigger.Pattern(req.pattern), req.count, req.from, req.options()...)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	if len(times) == 0 {
		fmt.Fprintln(w, "(never)")
		return nil
	}
	for _, t := range times {
		fmt.Fprintln(w, t.Format(time.RFC3339))
	}
	return nil
}

func createValidateCommand(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "校验配置文件并列出任务",
		Flags: []cli.Flag{newConfigFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdValidate(w, cmd.String("config"), time.Now())
		},
	}
}

// cmdValidate 加载配置并以表格列出任务，cron 任务附带下次触发时刻。
func cmdValidate(w io.Writer, path string, now time.Time) error {
	cfg, err := xschedule.LoadConfig(path)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tSCHEDULE\tNEXT\tSTATUS")
	for _, job := range cfg.Jobs {
		kind, _ := xtask.ParseKind(job.Kind)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", kind, job.Name, schedule(job), nextFire(job, now), status(cfg, kind, job))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "config ok: %d job(s), shutdown timeout %s\n", len(cfg.Jobs), cfg.ShutdownTimeout)
	return nil
}

func schedule(job xschedule.JobConfig) string {
	switch {
	case job.Pattern != "":
		return job.Pattern
	case job.At != "":
		return "at " + job.At
	default:
		return "every " + job.Every.String()
	}
}

func nextFire(job xschedule.JobConfig, now time.Time) string {
	if !strings.EqualFold(job.Kind, string(xtask.KindCron)) {
		return "-"
	}
	ct, err := job.CronTime()
	if err != nil {
		return "-"
	}
	opts, err := job.Options()
	if err != nil {
		return "-"
	}
	times, err := xtrigger.NextTimes(ct, 1, now, opts...)
	if err != nil || len(times) == 0 {
		return "never"
	}
	return times[0].Format(time.RFC3339)
}

func status(cfg xschedule.Config, kind xtask.Kind, job xschedule.JobConfig) string {
	switch {
	case !cfg.Enabled(kind):
		return "kind disabled"
	case job.Disabled:
		return "disabled"
	default:
		return "enabled"
	}
}

func createVersionCommand(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "显示版本信息",
		Action: func(context.Context, *cli.Command) error {
			fmt.Fprintf(w, "xschedctl %s\n", versionString())
			return nil
		},
	}
}
