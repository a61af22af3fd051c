package xtrigger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xschedule/xtrigger"

	metricRuns     = "xschedule.task.runs"
	metricFailures = "xschedule.task.failures"
	metricSkips    = "xschedule.task.skips"
	metricDuration = "xschedule.task.duration"
)

type observerConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// ObserverOption 观测器配置选项
type ObserverOption func(*observerConfig)

// WithInstrumentationName 设置 instrumentation 名称。
func WithInstrumentationName(name string) ObserverOption {
	return func(c *observerConfig) {
		if name != "" {
			c.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 provider。
func WithTracerProvider(p trace.TracerProvider) ObserverOption {
	return func(c *observerConfig) {
		if p != nil {
			c.tracerProvider = p
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 provider。
func WithMeterProvider(p metric.MeterProvider) ObserverOption {
	return func(c *observerConfig) {
		if p != nil {
			c.meterProvider = p
		}
	}
}

// Observer 为每次执行创建 span 并记录指标。
//
// 指标：
//   - xschedule.task.runs: 执行次数
//   - xschedule.task.failures: 失败次数
//   - xschedule.task.skips: 跳过次数（重叠、最小间隔、熔断）
//   - xschedule.task.duration: 执行耗时（秒）
//
// nil *Observer 的所有方法为空操作。
type Observer struct {
	tracer   trace.Tracer
	runs     metric.Int64Counter
	failures metric.Int64Counter
	skips    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewObserver 创建观测器。
func NewObserver(opts ...ObserverOption) (*Observer, error) {
	cfg := &observerConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	runs, err := meter.Int64Counter(metricRuns,
		metric.WithDescription("task runs"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xtrigger: create counter %s: %w", metricRuns, err)
	}
	failures, err := meter.Int64Counter(metricFailures,
		metric.WithDescription("failed task runs"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xtrigger: create counter %s: %w", metricFailures, err)
	}
	skips, err := meter.Int64Counter(metricSkips,
		metric.WithDescription("skipped task fires"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xtrigger: create counter %s: %w", metricSkips, err)
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("task run duration"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("xtrigger: create histogram %s: %w", metricDuration, err)
	}

	return &Observer{
		tracer:   cfg.tracerProvider.Tracer(cfg.instrumentationName),
		runs:     runs,
		failures: failures,
		skips:    skips,
		duration: duration,
	}, nil
}

func taskAttrs(info RunInfo) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("task.kind", string(info.Kind)),
		attribute.String("task.name", info.Name),
	}
}

func (o *Observer) start(ctx context.Context, info RunInfo) (context.Context, trace.Span) {
	if o == nil {
		return ctx, nil
	}
	attrs := taskAttrs(info)
	if info.RunID != 0 {
		attrs = append(attrs, attribute.Int64("task.run_id", info.RunID))
	}
	return o.tracer.Start(ctx, "xschedule."+string(info.Kind),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

func (o *Observer) finish(ctx context.Context, span trace.Span, info RunInfo, d time.Duration, err error) {
	if o == nil {
		return
	}
	set := metric.WithAttributes(taskAttrs(info)...)
	o.runs.Add(ctx, 1, set)
	o.duration.Record(ctx, d.Seconds(), set)
	if err != nil {
		o.failures.Add(ctx, 1, set)
	}
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (o *Observer) skip(ctx context.Context, info RunInfo, reason string) {
	if o == nil {
		return
	}
	attrs := append(taskAttrs(info), attribute.String("reason", reason))
	o.skips.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// abort 结束未执行回调的 span（熔断跳过）。
func (o *Observer) abort(span trace.Span, reason string) {
	if o == nil || span == nil {
		return
	}
	span.SetAttributes(attribute.String("skip.reason", reason))
	span.End()
}
