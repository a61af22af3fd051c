package xschedule

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// HealthStatus 调度器健康状态。
type HealthStatus string

const (
	// HealthStatusHealthy 已引导，失败率正常。
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded 调度正常但失败率超过阈值。
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusUnhealthy 未引导或已关闭。
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck 健康检查结果。
type HealthCheck struct {
	Status HealthStatus `json:"status"`
	// Tasks 各类型已注册任务数
	Tasks map[xtask.Kind]int `json:"tasks"`
	// Running 处于调度中的任务数
	Running int `json:"running"`
	// InFlight 执行中的回调数
	InFlight        int       `json:"in_flight"`
	TotalExecutions int64     `json:"total_executions"`
	FailureCount    int64     `json:"failure_count"`
	SkipCount       int64     `json:"skip_count"`
	SuccessRate     float64   `json:"success_rate"`
	LastExecTime    time.Time `json:"last_exec_time,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
	Message         string    `json:"message,omitempty"`
	CheckTime       time.Time `json:"check_time"`
}

// HealthCheckOption 健康检查配置选项
type HealthCheckOption func(*healthCheckOptions)

type healthCheckOptions struct {
	degradedThreshold float64
	minExecutions     int64
}

func defaultHealthCheckOptions() *healthCheckOptions {
	return &healthCheckOptions{
		degradedThreshold: 0.5,
		minExecutions:     10,
	}
}

// WithDegradedThreshold 失败率超过阈值时为 degraded，取值 0-1，默认 0.5。
func WithDegradedThreshold(threshold float64) HealthCheckOption {
	return func(o *healthCheckOptions) {
		if threshold >= 0 && threshold <= 1 {
			o.degradedThreshold = threshold
		}
	}
}

// WithMinExecutions 执行次数低于 n 时不按失败率判断，默认 10。
func WithMinExecutions(n int64) HealthCheckOption {
	return func(o *healthCheckOptions) {
		if n >= 0 {
			o.minExecutions = n
		}
	}
}

// Check 执行健康检查，可用于存活/就绪探针。
func (s *Scheduler) Check(_ context.Context, opts ...HealthCheckOption) *HealthCheck {
	o := defaultHealthCheckOptions()
	for _, opt := range opts {
		opt(o)
	}

	snap := s.opts.stats.Snapshot()
	result := &HealthCheck{
		Status:          HealthStatusHealthy,
		Tasks:           make(map[xtask.Kind]int, 3),
		InFlight:        s.tracker.Active(),
		TotalExecutions: snap.Runs,
		FailureCount:    snap.Failures,
		SkipCount:       snap.Skips,
		SuccessRate:     snap.SuccessRate,
		LastExecTime:    snap.LastRun,
		LastError:       snap.LastError,
		CheckTime:       s.opts.clock.Now(),
	}
	for _, kind := range xtask.Kinds() {
		names := s.registry.List(kind)
		result.Tasks[kind] = len(names)
		for _, name := range names {
			if h, err := s.Get(kind, name); err == nil && h.IsRunning() {
				result.Running++
			}
		}
	}

	s.mu.Lock()
	bootstrapped, closed := s.bootstrapped, s.closed
	s.mu.Unlock()
	switch {
	case closed:
		result.Status = HealthStatusUnhealthy
		result.Message = "scheduler is shut down"
		return result
	case !bootstrapped:
		result.Status = HealthStatusUnhealthy
		result.Message = "scheduler is not bootstrapped"
		return result
	}

	if snap.Runs >= o.minExecutions && snap.Runs > 0 {
		failureRate := 1 - snap.SuccessRate
		if failureRate > o.degradedThreshold {
			result.Status = HealthStatusDegraded
			result.Message = fmt.Sprintf("high failure rate: %.1f%% (threshold: %.1f%%)",
				failureRate*100, o.degradedThreshold*100)
		}
	}
	return result
}
