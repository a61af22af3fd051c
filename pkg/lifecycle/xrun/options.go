package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
)

// Option 配置 [Run]。
type Option func(*groupOptions)

type groupOptions struct {
	logger  xlog.Logger
	name    string
	// source 非 nil 时替代 signal.Notify，供测试注入信号
	source          <-chan os.Signal
	noSignalHandler bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger: xlog.Default(),
		name:   "xrun",
	}
}

// terminationSignals Run 监听的信号。SIGHUP 也视为终止，热更新由配置监视负责。
var terminationSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// WithLogger 设置生命周期日志的记录器。
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置日志 group 字段的取值，默认 xrun。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithoutSignalHandler 关闭 Run 的信号监听。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}

func withSignalSource(c <-chan os.Signal) Option {
	return func(o *groupOptions) {
		o.source = c
	}
}
