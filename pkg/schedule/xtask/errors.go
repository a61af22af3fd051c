package xtask

import (
	"errors"
	"fmt"
)

// 注册表与任务执行相关错误。
var (
	// ErrTaskNotFound 表示按名称查询的任务不存在。
	ErrTaskNotFound = errors.New("xtask: task not found")

	// ErrDuplicateTask 表示同类型内已存在同名任务。
	ErrDuplicateTask = errors.New("xtask: duplicate task name")

	// ErrUnknownKind 表示未知的任务类型。
	ErrUnknownKind = errors.New("xtask: unknown task kind")

	// ErrNilHandle 表示插入的句柄为 nil。
	ErrNilHandle = errors.New("xtask: nil handle")

	// ErrCallbackFailed 表示任务回调返回错误或发生 panic。
	ErrCallbackFailed = errors.New("xtask: callback failed")

	// ErrConfiguration 表示任务选项非法。
	ErrConfiguration = errors.New("xtask: invalid task configuration")
)

// TaskNotFoundError 按名称查询的任务不存在。
//
// Name 为空时表示查询未指定名称。
type TaskNotFoundError struct {
	Kind Kind
	Name string
}

func (e *TaskNotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("No %s was found. Check your configuration.", e.Kind.DisplayName())
	}
	return fmt.Sprintf("No %s was found with the given name (%s). Check your configuration.",
		e.Kind.DisplayName(), e.Name)
}

// Is 支持 errors.Is(err, ErrTaskNotFound)。
func (e *TaskNotFoundError) Is(target error) bool {
	return target == ErrTaskNotFound
}

// DuplicateTaskError 同类型内重名。
type DuplicateTaskError struct {
	Kind Kind
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s with the given name (%s) already exists.", e.Kind.DisplayName(), e.Name)
}

// Is 支持 errors.Is(err, ErrDuplicateTask)。
func (e *DuplicateTaskError) Is(target error) bool {
	return target == ErrDuplicateTask
}

// CallbackExecutionError 任务回调失败。
//
// 回调返回错误时 Err 非 nil；回调 panic 时 Panic 与 Stack 非空。
// 只会被记录到日志，不会传播给调度循环。
type CallbackExecutionError struct {
	Kind  Kind
	Name  string
	Err   error
	Panic any
	Stack []byte
}

func (e *CallbackExecutionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("xtask: %s %q panicked: %v", e.Kind, e.Name, e.Panic)
	}
	return fmt.Sprintf("xtask: %s %q failed: %v", e.Kind, e.Name, e.Err)
}

// Unwrap 返回回调原始错误。
func (e *CallbackExecutionError) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is(err, ErrCallbackFailed)。
func (e *CallbackExecutionError) Is(target error) bool {
	return target == ErrCallbackFailed
}

// ConfigurationError 任务选项非法，例如 cron 表达式无法解析、
// 同时设置了时区与 UTC 偏移、周期非正数。
type ConfigurationError struct {
	Kind   Kind
	Name   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	target := string(e.Kind)
	if e.Name != "" {
		target = fmt.Sprintf("%s %q", e.Kind, e.Name)
	}
	if e.Err != nil {
		return fmt.Sprintf("xtask: invalid %s: %s: %v", target, e.Reason, e.Err)
	}
	return fmt.Sprintf("xtask: invalid %s: %s", target, e.Reason)
}

// Unwrap 返回底层错误（如解析器错误）。
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is(err, ErrConfiguration)。
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
