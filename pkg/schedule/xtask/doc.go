// Package xtask 提供调度任务的命名注册表与错误类型。
//
// # 概述
//
// 注册表按任务类型（[Kind]）划分三个独立的命名空间：
//   - [KindCron]: cron 表达式驱动的任务
//   - [KindInterval]: 固定周期任务
//   - [KindTimeout]: 一次性延迟任务
//
// 同一类型内名称唯一，不同类型之间允许重名。
//
// # 句柄所有权
//
// 注册表只依赖 [Handle] 的 Stop 方法。句柄一旦插入即归注册表所有：
// [Registry.Remove] 与 [Registry.RemoveAll] 在摘除前先停止句柄，
// 保证注册表中不会残留已停止但仍可查询的句柄。
//
// # 错误
//
//   - [TaskNotFoundError]: 按名称查询不存在的任务（errors.Is 匹配 [ErrTaskNotFound]）
//   - [DuplicateTaskError]: 同类型内重名（errors.Is 匹配 [ErrDuplicateTask]）
//   - [CallbackExecutionError]: 回调返回错误或 panic，仅用于日志
//   - [ConfigurationError]: 任务选项非法
//
// # 快速开始
//
//	reg := xtask.NewRegistry()
//	if err := reg.Add(xtask.KindInterval, "flush", handle); err != nil {
//	    return err
//	}
//	h, err := xtask.Lookup[*xtrigger.Interval](reg, xtask.KindInterval, "flush")
package xtask
