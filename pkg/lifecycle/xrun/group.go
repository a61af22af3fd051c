package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
)

// Service 阻塞运行直到 ctx 取消或出错的长驻服务。
type Service interface {
	Run(ctx context.Context) error
}

type namedService struct {
	name string
	fn   func(ctx context.Context) error
}

func (s namedService) Run(ctx context.Context) error { return s.fn(ctx) }

// Named 为服务命名，名称出现在生命周期日志中。
func Named(name string, fn func(ctx context.Context) error) Service {
	return namedService{name: name, fn: fn}
}

// group 并发运行服务，任一服务出错时取消其余服务。Wait 只应调用一次。
type group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// newGroup 的 ctx 在任一服务出错或 cancel 时取消。
func newGroup(ctx context.Context, opts ...Option) *group {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}
}

// Go 启动一个命名服务。fn 为 nil 时该服务返回 [ErrNilService]。
func (g *group) Go(name string, fn func(ctx context.Context) error) {
	attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilService
		}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待全部服务返回。
//
// 返回第一个非 nil 错误。该错误是 group 自身取消引起的 context.Canceled 时，
// 改为返回 cancel 的原因（如 [*SignalError]），没有原因则返回 nil。
func (g *group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := func() error {
		if c := context.Cause(g.causeCtx); c != nil && !errors.Is(c, context.Canceled) {
			return c
		}
		return nil
	}

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			return cause()
		}
		// 服务内部产生的取消，不过滤
		return err
	}
	if err == nil && g.causeCtx.Err() != nil {
		return cause()
	}
	return err
}

// Run 运行全部服务并监听终止信号，收到信号时返回 [*SignalError]。
//
// 未用 [Named] 命名的服务以其序号命名。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g := newGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		g.Go("signal", g.watchSignals)
	}
	for i, svc := range services {
		switch s := svc.(type) {
		case nil:
			g.Go(serviceName(i), nil)
		case namedService:
			g.Go(s.name, s.fn)
		default:
			g.Go(serviceName(i), s.Run)
		}
	}
	return g.Wait()
}

func serviceName(i int) string {
	return "service-" + strconv.Itoa(i)
}

func (g *group) watchSignals(ctx context.Context) error {
	source := g.opts.source
	if source == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, terminationSignals...)
		defer signal.Stop(ch)
		source = ch
	}

	select {
	case sig := <-source:
		g.opts.logger.Info(ctx, "received signal",
			slog.String("group", g.opts.name), slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
