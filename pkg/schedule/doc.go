// Package schedule 提供进程内定时任务相关的子包。
//
// 子包列表：
//   - xtask: 任务类型、按类型分区的注册表与错误类型
//   - xtrigger: cron、周期、延迟三类任务句柄及执行管道
//   - xschedule: 调度器编排、声明发现、文件配置与模块生命周期
//
// 依赖方向：xschedule → xtrigger → xtask。
package schedule
