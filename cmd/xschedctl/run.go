package main

import (
	"context"
	"errors"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xschedule/pkg/lifecycle/xrun"
	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xschedule"
)

type runOptions struct {
	configPath string
	watch      bool
	logLevel   string
	logFormat  string
	logFile    string
	// xrunOpts 测试注入
	xrunOpts []xrun.Option
}

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "按配置运行任务，直到收到终止信号",
		Flags: []cli.Flag{
			newConfigFlag(),
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "配置文件变更时热更新任务"},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 (debug/info/warn/error)", Value: "info"},
			&cli.StringFlag{Name: "log-format", Usage: "日志格式 (text/json)", Value: "text"},
			&cli.StringFlag{Name: "log-file", Usage: "日志文件路径，按大小轮转；为空时输出到 stderr"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdRun(ctx, runOptions{
				configPath: cmd.String("config"),
				watch:      cmd.Bool("watch"),
				logLevel:   cmd.String("log-level"),
				logFormat:  cmd.String("log-format"),
				logFile:    cmd.String("log-file"),
			}, cmd.Root().ErrWriter)
		},
	}
}

// cmdRun 运行调度模块（可选附带配置监视），信号退出视为成功。
func cmdRun(ctx context.Context, opts runOptions, stderr io.Writer) error {
	b := xlog.New().
		SetOutput(stderr).
		SetLevelString(opts.logLevel).
		SetFormat(opts.logFormat).
		SetAttrs(xlog.Component("xschedctl"))
	if opts.logFile != "" {
		b = b.SetRotation(opts.logFile)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { _ = cleanup() }()

	cfg, err := xschedule.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	module, err := xschedule.NewModule(cfg,
		xschedule.WithModuleLogger(logger),
		xschedule.WithHandlerResolver(newCommandResolver(logger)),
	)
	if err != nil {
		return err
	}

	services := []xrun.Service{xrun.Named("scheduler", module.Run)}
	if opts.watch {
		watcher, err := xschedule.Watch(opts.configPath, reloadInto(ctx, module, logger))
		if err != nil {
			return err
		}
		services = append(services, xrun.Named("config-watcher", watcher.Run))
	}

	xrunOpts := append([]xrun.Option{xrun.WithLogger(logger), xrun.WithName("xschedctl")}, opts.xrunOpts...)
	err = xrun.Run(ctx, xrunOpts, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

// reloadInto 把配置变更对账进模块，失败只记录日志，任务保持原状。
func reloadInto(ctx context.Context, m *xschedule.Module, logger xlog.Logger) xschedule.WatchCallback {
	return func(cfg xschedule.Config, err error) {
		if err == nil {
			err = m.Reload(ctx, cfg)
		}
		if err != nil {
			logger.Error(ctx, "config reload failed", xlog.Err(err))
		}
	}
}
