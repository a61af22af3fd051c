// Package xschedule 编排任务的登记、引导与关闭。
//
// # 概述
//
// [Scheduler] 持有一个 [xtask.Registry]，负责三件事：
//   - 登记：AddCron / AddInterval / AddTimeout，引导前缓冲，引导后立即生效
//   - 引导：[Scheduler.Bootstrap] 按 timeout、interval、cron 的顺序插入并启动，
//     重名是致命错误
//   - 关闭：[Scheduler.Shutdown] 停止并摘除全部任务，等待执行中的回调结束
//
// # 声明与探索
//
// 任务可以通过 [Discoverer] 声明，由 [Explore] 在初始化阶段统一注册：
//   - [Declare]: 在代码中按所属对象显式声明
//   - [ConfigDiscoverer]: 来自配置文件，回调由 [HandlerResolver] 解析
//   - [DiscovererFunc] / [Candidates]: 自定义来源
//
// 所属对象按请求创建（[Candidate].Static 为 false）的声明不会注册，只记录告警。
//
// # 模块
//
// [Module] 把配置、声明来源、cron provider 与调度器组装在一起：
//
//	cfg, err := xschedule.LoadConfig("schedule.yaml")
//	if err != nil {
//	    return err
//	}
//	m, err := xschedule.NewModule(cfg,
//	    xschedule.WithDiscoverers(xschedule.Declare("Billing").
//	        Cron("Invoice", "invoice", xtrigger.Pattern("0 0 1 * * *"), billing.Invoice)),
//	    xschedule.WithHandlerResolver(xschedule.Handlers{"cleanup": cleanup}),
//	)
//	if err != nil {
//	    return err
//	}
//	return m.Run(ctx)
//
// 配置文件示例：
//
//	cron_jobs: true
//	intervals: true
//	timeouts: false
//	shutdown_timeout: 30s
//	jobs:
//	  - name: cleanup
//	    kind: cron
//	    pattern: "0 */5 * * * *"
//	    timezone: Asia/Shanghai
//	    prevent_overrun: true
//	  - name: heartbeat
//	    kind: interval
//	    every: 10s
//
// [Watch] 监视配置文件，配合 [Module.Reload] 实现热更新。
package xschedule
