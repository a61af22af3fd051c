// Package xtrigger 提供 cron、周期、延迟三类任务句柄及其执行管道。
//
// # 概述
//
// 触发时刻由 [robfig/cron/v3] 计算，等待与计时通过 clockwork.Clock 完成，
// 测试中可注入 FakeClock 精确推进时间。
//
//   - [CronJob]: cron 表达式或绝对时刻触发（[NewCron]）
//   - [Interval]: 固定周期触发（[NewInterval]）
//   - [Timeout]: 延迟一次触发（[NewTimeout]）
//
// 三类句柄都实现 [Handle]，构建后处于停止状态，由调用方 Start。
//
// # cron 选项
//
//   - WithTimezone / WithUTCOffset: 表达式所用时区，二者互斥，默认 time.Local
//   - WithPreventOverrun: 上一次执行未结束时跳过本次（不排队）
//   - WithMinInterval: 距上次触发不足最小间隔时跳过
//   - WithMaxRuns: 累计触发次数上限，达到后停止
//   - WithDayMode: 日与星期字段按 OR（默认）或 AND 组合
//   - WithDisabled: 标记为构建后不自动启动
//
// # 执行管道
//
// 每次触发在独立 goroutine 中执行：
//
//	run id → span → BeforeRun → 超时 → 熔断 → 重试 → 回调 → AfterRun（逆序）→ 统计 → 日志
//
// 回调返回的错误与 panic 被包装为 xtask.CallbackExecutionError 并记录日志，
// 不会影响后续触发，也不会影响其他任务。
//
//	job, err := xtrigger.NewCron("report", xtrigger.Pattern("0 0 9 * * 1-5"), report,
//	    xtrigger.WithTimezone("Asia/Shanghai"),
//	    xtrigger.WithPreventOverrun(),
//	    xtrigger.WithRetry(3, time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	job.Start()
//	defer job.Stop()
package xtrigger
