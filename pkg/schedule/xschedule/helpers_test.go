package xschedule

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

var testStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const waitFor = 2 * time.Second

func noop(context.Context) error { return nil }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// syncBuffer 并发安全的日志缓冲
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// records 解析 JSON 日志行
func (b *syncBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	data := b.buf.String()
	b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// messages 返回指定级别的日志消息
func (b *syncBuffer) messages(t *testing.T, level string) []string {
	t.Helper()
	var out []string
	for _, rec := range b.records(t) {
		if rec["level"] == level {
			out = append(out, rec["msg"].(string))
		}
	}
	return out
}

func newTestLogger(t *testing.T) (xlog.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	logger, cleanup, err := xlog.New().
		SetOutput(buf).
		SetFormat("json").
		SetLevel(xlog.LevelDebug).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, buf
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testStart)
	base := []Option{WithClock(clock), WithLogger(xlog.Nop())}
	s := New(nil, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, clock
}

func counting(n *atomic.Int32) xtrigger.Func {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}
