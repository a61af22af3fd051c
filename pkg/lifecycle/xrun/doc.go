// Package xrun 以 errgroup 协调进程内多个长驻服务的运行与关闭。
//
// 任一服务返回错误、父 context 取消或收到终止信号时，其余服务的 ctx
// 被取消，Run 等待全部服务返回后结束。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.Named("scheduler", module.Run),
//	    xrun.Named("config-watcher", watcher.Run),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
//
// # 退出原因
//
// Run 过滤服务因取消而返回的 context.Canceled：父 context 取消时返回 nil，
// 信号退出返回 [*SignalError]，服务自身的错误原样返回。
package xrun
