package xtrigger

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
)

// testStart 2020-01-01T00:00:00Z
var testStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const waitFor = 2 * time.Second

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(testStart)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// quiet 测试通用选项：假时钟、静默日志、独立 Tracker
func quiet(clock clockwork.Clock, tr *Tracker) []Option {
	return []Option{WithClock(clock), WithLogger(xlog.Nop()), WithTracker(tr)}
}
