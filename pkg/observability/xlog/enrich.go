package xlog

import (
	"context"
	"log/slog"
	"slices"
)

type ctxAttrsKey struct{}

// WithContextAttrs 把属性挂到 context 上，已有属性保留在前。
func WithContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	merged := slices.Concat(ContextAttrs(ctx), attrs)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// ContextAttrs 返回 context 上携带的属性，ctx 为 nil 时返回 nil。
func ContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// EnrichHandler 在写入前追加 context 上携带的属性
//
// 调用 WithGroup 后注入的属性同样归入该分组。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装底层 handler
func NewEnrichHandler(base slog.Handler) *EnrichHandler {
	return &EnrichHandler{base: base}
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 按 slog 契约先 Clone record 再追加属性
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := ContextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
